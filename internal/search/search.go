// Package search filters monuments for the home grid and the command
// palette.
package search

import (
	"strings"

	"github.com/ppiankov/heritage/internal/model"
)

// matches reports whether the monument name, location or type contains q,
// ignoring case. q must already be lower-cased and trimmed.
func matches(m model.Monument, q string) bool {
	for _, field := range []string{m.Name, model.Str(m.Location), model.Str(m.Type)} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Filter returns the monuments matching q in input order. A blank query
// returns the input unchanged.
func Filter(monuments []model.Monument, q string) []model.Monument {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return monuments
	}

	out := make([]model.Monument, 0)
	for _, m := range monuments {
		if matches(m, q) {
			out = append(out, m)
		}
	}
	return out
}

// Result is a truncated match list
type Result struct {
	Monuments []model.Monument `json:"monuments"`
	Total     int              `json:"total"`
}

// More returns how many matches were cut off
func (r Result) More() int {
	return r.Total - len(r.Monuments)
}

// Palette returns the first limit matches and the total match count. A
// blank query matches nothing.
func Palette(monuments []model.Monument, q string, limit int) Result {
	if strings.TrimSpace(q) == "" {
		return Result{Monuments: []model.Monument{}}
	}

	all := Filter(monuments, q)
	res := Result{Monuments: all, Total: len(all)}
	if limit > 0 && len(all) > limit {
		res.Monuments = all[:limit]
	}
	return res
}
