package mapping

import (
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"provmap/pkg/colorutil"
)

// Resolution is the identity assigned to one region.
type Resolution struct {
	ID       string // Unique output identifier
	SourceID string // ID before collision suffixing
	Name     string // Display name
	Mapped   bool   // Found in the mapping table
	Sea      bool   // Mapping row flagged the region as sea
	Collided bool   // ID received a disambiguating suffix
}

// Resolver assigns IDs to region colors. It remembers every ID it handed
// out, so one Resolver must be used per run and regions must be claimed in
// output order.
type Resolver struct {
	table     *Table
	tolerance int
	metric    colorutil.Metric

	taken map[string]bool
	next  map[string]int
}

// NewResolver creates a resolver over table, which may be nil.
func NewResolver(table *Table, tolerance int, metric colorutil.Metric) *Resolver {
	return &Resolver{
		table:     table,
		tolerance: tolerance,
		metric:    metric,
		taken:     make(map[string]bool),
		next:      make(map[string]int),
	}
}

// Match looks up the identity for c without reserving its ID.
func (r *Resolver) Match(c color.NRGBA) Resolution {
	if e, ok := r.table.Lookup(c, r.tolerance, r.metric); ok {
		name := e.Name
		if name == "" {
			name = Humanize(e.ID)
		}
		return Resolution{ID: e.ID, SourceID: e.ID, Name: name, Mapped: true, Sea: e.Sea}
	}
	id := FallbackID(c)
	return Resolution{ID: id, SourceID: id, Name: Humanize(id)}
}

// Claim reserves res.ID. The first claimant keeps the ID; later claimants get
// the first free "_2", "_3", ... suffix.
func (r *Resolver) Claim(res Resolution) Resolution {
	base := res.SourceID
	if base == "" {
		base = res.ID
	}
	res.SourceID = base
	if !r.taken[base] {
		r.taken[base] = true
		res.ID = base
		return res
	}

	n := r.next[base]
	if n < 2 {
		n = 2
	}
	for r.taken[base+"_"+strconv.Itoa(n)] {
		n++
	}
	res.ID = base + "_" + strconv.Itoa(n)
	res.Collided = true
	r.taken[res.ID] = true
	r.next[base] = n + 1
	return res
}

// Resolve matches and claims in one step.
func (r *Resolver) Resolve(c color.NRGBA) Resolution {
	return r.Claim(r.Match(c))
}

// FallbackID derives a stable ID from a color: "region_rrggbb", with the
// alpha byte appended when the color is not opaque.
func FallbackID(c color.NRGBA) string {
	return "region_" + colorutil.Hex(c)
}

// Humanize turns an identifier into a display name: underscores become
// spaces and words are title cased.
func Humanize(id string) string {
	s := strings.Join(strings.Fields(strings.ReplaceAll(id, "_", " ")), " ")
	return norm.NFC.String(cases.Title(language.Und).String(s))
}
