package timeline

// Canonical period names
const (
	Ancient       = "Ancient Period"
	EarlyMedieval = "Early Medieval"
	Medieval      = "Medieval Period"
	Mughal        = "Mughal Era"
	LateMughal    = "Late Mughal & Regional"
	Colonial      = "Colonial Period"
	Modern        = "Modern Period"
	UnknownPeriod = "Unknown Period"
)

// NeutralStyle is the style token for non-canonical periods
const NeutralStyle = "from-muted to-secondary"

// unknownEndYear is the end year reported for buckets with no known years
const unknownEndYear = 2024

// Era describes a canonical period
type Era struct {
	Name      string // Bucket key
	DateRange string // Human-readable span
	Style     string // Opaque presentation token
	Order     int    // Position in the canonical sequence
	Until     int    // Exclusive upper year bound for inference; 0 for the open-ended and unknown eras
}

// eras is ordered by threshold. EraFor walks it top to bottom.
var eras = []Era{
	{Name: Ancient, DateRange: "Before 500 CE", Style: "from-amber-500 to-orange-600", Order: 1, Until: 500},
	{Name: EarlyMedieval, DateRange: "500-1200 CE", Style: "from-emerald-500 to-teal-600", Order: 2, Until: 1200},
	{Name: Medieval, DateRange: "1200-1526 CE", Style: "from-blue-500 to-indigo-600", Order: 3, Until: 1526},
	{Name: Mughal, DateRange: "1526-1707 CE", Style: "from-purple-500 to-pink-600", Order: 4, Until: 1707},
	{Name: LateMughal, DateRange: "1707-1857 CE", Style: "from-rose-500 to-red-600", Order: 5, Until: 1857},
	{Name: Colonial, DateRange: "1857-1947 CE", Style: "from-slate-500 to-gray-600", Order: 6, Until: 1947},
	{Name: Modern, DateRange: "1947-Present", Style: "from-primary to-accent", Order: 7},
}

var unknownEra = Era{Name: UnknownPeriod, DateRange: "Date Unknown", Style: NeutralStyle, Order: 0}

var byName = func() map[string]Era {
	m := make(map[string]Era, len(eras)+1)
	for _, e := range eras {
		m[e.Name] = e
	}
	m[unknownEra.Name] = unknownEra
	return m
}()

// EraFor maps a construction year to its inferred era name
func EraFor(year int) string {
	for _, e := range eras {
		if e.Until == 0 || year < e.Until {
			return e.Name
		}
	}
	return Modern
}

// Lookup returns the canonical descriptor for name. Matching is exact.
func Lookup(name string) (Era, bool) {
	e, ok := byName[name]
	return e, ok
}

// Eras returns the seven dated eras in chronological order
func Eras() []Era {
	out := make([]Era, len(eras))
	copy(out, eras)
	return out
}
