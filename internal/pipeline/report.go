package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"provmap/internal/emit"
)

// Report summarizes a run.
type Report struct {
	Width, Height int
	Detected      int
	Emitted       int
	Dropped       map[string]int // By metrics reason
	Fallback      int
	Collisions    int

	TotalArea  float64
	MeanArea   float64
	MedianArea float64
	MinArea    float64
	MaxArea    float64

	Files []string
}

func newReport(w, h int) *Report {
	return &Report{Width: w, Height: h, Dropped: map[string]int{}}
}

func (r *Report) finish(records []emit.Record) {
	r.Emitted = len(records)
	if len(records) == 0 {
		return
	}
	areas := make([]float64, len(records))
	for i, rec := range records {
		areas[i] = float64(rec.AreaPx)
	}
	sort.Float64s(areas)
	r.TotalArea = floats.Sum(areas)
	r.MeanArea = stat.Mean(areas, nil)
	r.MedianArea = stat.Quantile(0.5, stat.Empirical, areas, nil)
	r.MinArea = areas[0]
	r.MaxArea = areas[len(areas)-1]
}

// DroppedTotal is the number of regions dropped for any reason.
func (r *Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d: %d regions detected, %d emitted", r.Width, r.Height, r.Detected, r.Emitted)
	if n := r.DroppedTotal(); n > 0 {
		reasons := make([]string, 0, len(r.Dropped))
		for reason, c := range r.Dropped {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, c))
		}
		sort.Strings(reasons)
		fmt.Fprintf(&sb, ", %d dropped (%s)", n, strings.Join(reasons, " "))
	}
	if r.Fallback > 0 {
		fmt.Fprintf(&sb, ", %d fallback ids", r.Fallback)
	}
	if r.Collisions > 0 {
		fmt.Fprintf(&sb, ", %d id collisions", r.Collisions)
	}
	if r.Emitted > 0 {
		fmt.Fprintf(&sb, "; area mean %.1f median %.0f", r.MeanArea, r.MedianArea)
	}
	return sb.String()
}
