// Package timeline groups monuments into ordered historical periods.
package timeline

import (
	"fmt"
	"sort"

	"github.com/ppiankov/heritage/internal/model"
)

// Period is one timeline section
type Period struct {
	Name      string           `json:"name"`
	DateRange string           `json:"date_range"`
	Style     string           `json:"style"`
	StartYear int              `json:"start_year"` // Earliest known year, 0 if none
	EndYear   int              `json:"end_year"`   // Latest known year, 2024 if none
	Monuments []model.Monument `json:"monuments"`
}

// Count returns the number of monuments in the period
func (p Period) Count() int {
	return len(p.Monuments)
}

// BucketKey returns the period a monument belongs to. A non-empty explicit
// period wins over the construction year and is used verbatim.
func BucketKey(m model.Monument) string {
	if m.Period != nil && *m.Period != "" {
		return *m.Period
	}
	if m.HasYear() {
		return EraFor(*m.BuildYear)
	}
	return UnknownPeriod
}

// Classify partitions monuments into periods sorted by start year, each
// holding its members sorted by construction year. The input is not modified.
// Equal sort keys keep input order.
func Classify(monuments []model.Monument) []Period {
	// 1. Group by bucket key, remembering first-occurrence order
	var order []string
	groups := make(map[string][]model.Monument)
	for _, m := range monuments {
		key := BucketKey(m)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	// 2. Describe each bucket
	periods := make([]Period, 0, len(order))
	for _, name := range order {
		periods = append(periods, describe(name, groups[name]))
	}

	// 3. Chronological order
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].StartYear < periods[j].StartYear
	})

	return periods
}

// describe builds a period from its members
func describe(name string, members []model.Monument) Period {
	sorted := make([]model.Monument, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].YearOrZero() < sorted[j].YearOrZero()
	})

	start, end, known := yearSpan(sorted)
	if !known {
		start, end = 0, unknownEndYear
	}

	p := Period{
		Name:      name,
		Style:     NeutralStyle,
		StartYear: start,
		EndYear:   end,
		Monuments: sorted,
	}

	if era, ok := Lookup(name); ok {
		p.DateRange = era.DateRange
		p.Style = era.Style
	} else {
		p.DateRange = fmt.Sprintf("%d-%d CE", start, end)
	}

	return p
}

// yearSpan returns the min and max known years
func yearSpan(members []model.Monument) (lo, hi int, known bool) {
	for _, m := range members {
		if !m.HasYear() {
			continue
		}
		y := *m.BuildYear
		if !known {
			lo, hi, known = y, y, true
			continue
		}
		if y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}
	return lo, hi, known
}

// Find returns the period with the given name
func Find(periods []Period, name string) (Period, bool) {
	for _, p := range periods {
		if p.Name == name {
			return p, true
		}
	}
	return Period{}, false
}
