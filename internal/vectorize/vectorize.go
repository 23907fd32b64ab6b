// Package vectorize converts region masks into simplified polygon outlines.
package vectorize

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"provmap/internal/segment"
	"provmap/pkg/geometry"
)

// ErrTooSmall is returned for masks below the minimum area.
var ErrTooSmall = errors.New("region below minimum area")

// Tracer selects the boundary tracing backend.
type Tracer string

const (
	// TracerCrack traces pixel edges with OpenCV contours and emits
	// straight-line polygons.
	TracerCrack Tracer = "crack"
	// TracerPotrace fits Bezier curves to the mask with potrace.
	TracerPotrace Tracer = "potrace"
)

// ParseTracer validates a tracer name. An empty name selects TracerCrack.
func ParseTracer(s string) (Tracer, error) {
	switch t := Tracer(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TracerCrack, nil
	case TracerCrack, TracerPotrace:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tracer %q (want crack or potrace)", s)
	}
}

// Options configures vectorization.
type Options struct {
	Simplify     float64              // Douglas-Peucker epsilon as percent of ring perimeter
	MinArea      int                  // Minimum mask area in (supersampled) pixels
	Connectivity segment.Connectivity // Resolves diagonal pixel contacts
	Tracer       Tracer
	Scale        float64 // Coordinates are divided by Scale (supersampling factor)
}

// DefaultOptions returns sensible defaults for province lookup maps.
func DefaultOptions() Options {
	return Options{
		Simplify:     0.3,
		MinArea:      80,
		Connectivity: segment.Eight,
		Tracer:       TracerCrack,
		Scale:        1,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.Simplify < 0 || math.IsNaN(o.Simplify) {
		return fmt.Errorf("invalid simplify tolerance %v", o.Simplify)
	}
	if o.MinArea < 0 {
		return fmt.Errorf("invalid minimum area %d", o.MinArea)
	}
	if o.Scale < 0 {
		return fmt.Errorf("invalid scale %v", o.Scale)
	}
	if _, err := ParseTracer(string(o.Tracer)); err != nil {
		return err
	}
	_, err := segment.ParseConnectivity(int(o.Connectivity))
	return err
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

// Polygon is one outer ring and the holes inside it.
type Polygon struct {
	Outer geometry.Ring
	Holes []geometry.Ring
}

// Shape is the vector form of one region.
type Shape struct {
	Polygons  []Polygon        // Empty for the potrace backend
	PathData  string           // SVG path "d" attribute
	Transform string           // SVG transform for PathData, empty when coordinates are absolute
	Bounds    geometry.Rect    // Pixel bounding box in output coordinates
	Area      int              // Pixel count in output units
	Centroid  geometry.Point2D // Mean pixel center
	Rings     int              // Subpaths in PathData
	Holes     int              // Hole rings across all polygons
	Points    int              // Vertices across all rings
}

// Vectorize traces and simplifies a region mask. Masks with fewer than
// MinArea pixels (or no pixels at all) return ErrTooSmall.
func Vectorize(mask *segment.Mask, opts Options) (*Shape, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	area := mask.Area()
	if area == 0 || area < opts.MinArea {
		return nil, fmt.Errorf("%w: %d px", ErrTooSmall, area)
	}

	s := opts.scale()
	shape := &Shape{
		Bounds:   geometry.FromRectangle(mask.Bounds()).Scale(1 / s),
		Area:     int(math.Round(float64(area) / (s * s))),
		Centroid: mask.Centroid().Scale(1 / s),
	}

	if opts.Tracer == TracerPotrace {
		d, transform, err := tracePotrace(mask, s)
		if err != nil {
			return nil, err
		}
		shape.PathData = d
		shape.Transform = transform
		shape.Rings = strings.Count(strings.ToUpper(d), "M")
		return shape, nil
	}

	conn := opts.Connectivity
	if conn == 0 {
		conn = segment.Eight
	}
	polys := TracePolygons(mask, conn)
	for i := range polys {
		polys[i] = simplifyPolygon(polys[i], opts.Simplify).scale(s)
		shape.Rings += 1 + len(polys[i].Holes)
		shape.Holes += len(polys[i].Holes)
		shape.Points += len(polys[i].Outer)
		for _, h := range polys[i].Holes {
			shape.Points += len(h)
		}
	}
	shape.Polygons = polys
	shape.PathData = PathData(polys)
	return shape, nil
}

// simplifyPolygon applies Douglas-Peucker to every ring with an epsilon
// proportional to the ring's own perimeter. Outer rings never drop below a
// triangle; holes that degenerate are dropped.
func simplifyPolygon(p Polygon, percent float64) Polygon {
	out := Polygon{Outer: simplifyRing(p.Outer, percent, 1)}
	if len(out.Outer) < 3 || out.Outer.Area() == 0 {
		out.Outer = spanTriangle(p.Outer)
	}
	for _, h := range p.Holes {
		sh := simplifyRing(h, percent, -1)
		if len(sh) < 3 || sh.Area() == 0 {
			continue
		}
		out.Holes = append(out.Holes, sh)
	}
	return out
}

func (p Polygon) scale(s float64) Polygon {
	if s == 1 {
		return p
	}
	out := Polygon{Outer: p.Outer.Translate(geometry.Point2D{}, 1/s)}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, h.Translate(geometry.Point2D{}, 1/s))
	}
	return out
}

// PathData formats polygons as SVG path data, one "M x y L ... Z" subpath
// per ring, outer ring before its holes.
func PathData(polys []Polygon) string {
	var sb strings.Builder
	writeRing := func(r geometry.Ring) {
		if len(r) < 3 {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "M%.1f %.1f", r[0].X, r[0].Y)
		for _, p := range r[1:] {
			fmt.Fprintf(&sb, " L%.1f %.1f", p.X, p.Y)
		}
		sb.WriteString(" Z")
	}
	for _, p := range polys {
		writeRing(p.Outer)
		for _, h := range p.Holes {
			writeRing(h)
		}
	}
	return sb.String()
}
