package vectorize

import (
	"errors"
	"image"
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provmap/internal/segment"
	"provmap/pkg/geometry"
)

// maskOf builds a mask from rows where '#' marks a set pixel.
func maskOf(rows ...string) *segment.Mask {
	m := segment.NewMask(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				m.Set(x, y, true)
			}
		}
	}
	return m
}

func exact() Options {
	opts := DefaultOptions()
	opts.Simplify = 0
	opts.MinArea = 0
	return opts
}

func TestVectorizeSquare(t *testing.T) {
	t.Parallel()

	m := maskOf(
		"....",
		".##.",
		".##.",
		"....",
	)
	shape, err := Vectorize(m, exact())
	require.NoError(t, err)

	assert.Equal(t, "M1.0 1.0 L3.0 1.0 L3.0 3.0 L1.0 3.0 Z", shape.PathData)
	assert.Equal(t, 4, shape.Area)
	assert.Equal(t, 1, shape.Rings)
	assert.Equal(t, 4, shape.Points)
	assert.Equal(t, geometry.Rect{X: 1, Y: 1, Width: 2, Height: 2}, shape.Bounds)
	assert.Equal(t, geometry.Point2D{X: 2, Y: 2}, shape.Centroid)
	require.Len(t, shape.Polygons, 1)
	assert.InDelta(t, 4, shape.Polygons[0].Outer.SignedArea(), 1e-9)
}

func TestVectorizeHole(t *testing.T) {
	t.Parallel()

	m := maskOf(
		"#####",
		"#####",
		"##.##",
		"#####",
		"#####",
	)
	shape, err := Vectorize(m, exact())
	require.NoError(t, err)

	require.Len(t, shape.Polygons, 1)
	require.Len(t, shape.Polygons[0].Holes, 1)
	assert.Equal(t, 24, shape.Area)
	assert.Equal(t, 2, shape.Rings)
	assert.Equal(t, 1, shape.Holes)
	assert.Less(t, shape.Polygons[0].Holes[0].SignedArea(), 0.0)
	assert.True(t, strings.HasSuffix(shape.PathData, "M2.0 2.0 L2.0 3.0 L3.0 3.0 L3.0 2.0 Z"), shape.PathData)
}

func TestTracePolygonsSaddle(t *testing.T) {
	t.Parallel()

	m := maskOf(
		"#.",
		".#",
	)

	polys := TracePolygons(m, segment.Eight)
	require.Len(t, polys, 1)
	assert.Len(t, polys[0].Outer, 8)
	assert.InDelta(t, 2, polys[0].Outer.SignedArea(), 1e-9)

	polys = TracePolygons(m, segment.Four)
	require.Len(t, polys, 2)
	for _, p := range polys {
		assert.InDelta(t, 1, p.Outer.SignedArea(), 1e-9)
		assert.Len(t, p.Outer, 4)
	}
	assert.Equal(t, geometry.Point2D{X: 0, Y: 0}, polys[0].Outer[0])
	assert.Equal(t, geometry.Point2D{X: 1, Y: 1}, polys[1].Outer[0])
}

func TestTracePolygonsIslandInHole(t *testing.T) {
	t.Parallel()

	m := maskOf(
		"#######",
		"#######",
		"##...##",
		"##.#.##",
		"##...##",
		"#######",
		"#######",
	)
	polys := TracePolygons(m, segment.Eight)
	require.Len(t, polys, 2)
	require.Len(t, polys[0].Holes, 1)
	assert.InDelta(t, 49, polys[0].Outer.Area(), 1e-9)
	assert.InDelta(t, -9, polys[0].Holes[0].SignedArea(), 1e-9)
	assert.Empty(t, polys[1].Holes)
	assert.InDelta(t, 1, polys[1].Outer.Area(), 1e-9)
}

func TestTracePolygonsConcaveCorners(t *testing.T) {
	t.Parallel()

	m := maskOf(
		"###.",
		"#...",
		"####",
	)
	polys := TracePolygons(m, segment.Eight)
	require.Len(t, polys, 1)
	assert.Equal(t, geometry.Ring{
		{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2},
		{X: 4, Y: 2}, {X: 4, Y: 3}, {X: 0, Y: 3},
	}, polys[0].Outer)
	assert.InDelta(t, float64(m.Area()), polys[0].Outer.Area(), 1e-9)
}

func TestTracePolygonsOffsetMask(t *testing.T) {
	t.Parallel()

	m := segment.NewMask(image.Rect(0, 0, 20, 20))
	for y := 5; y < 8; y++ {
		for x := 12; x < 14; x++ {
			m.Set(x, y, true)
		}
	}
	polys := TracePolygons(m, segment.Eight)
	require.Len(t, polys, 1)
	assert.Equal(t, geometry.Ring{{X: 12, Y: 5}, {X: 14, Y: 5}, {X: 14, Y: 8}, {X: 12, Y: 8}}, polys[0].Outer)

	assert.Empty(t, TracePolygons(segment.NewMask(image.Rect(0, 0, 3, 3)), segment.Eight))
}

func TestVectorizeMinArea(t *testing.T) {
	t.Parallel()

	m := maskOf("###")

	opts := exact()
	opts.MinArea = 4
	_, err := Vectorize(m, opts)
	assert.True(t, errors.Is(err, ErrTooSmall))

	opts.MinArea = 3
	_, err = Vectorize(m, opts)
	assert.NoError(t, err, "area equal to the minimum is kept")

	_, err = Vectorize(segment.NewMask(image.Rect(0, 0, 2, 2)), exact())
	assert.ErrorIs(t, err, ErrTooSmall)
}

func TestVectorizeScale(t *testing.T) {
	t.Parallel()

	m := segment.NewMask(image.Rect(0, 0, 6, 6))
	for y := 2; y < 4; y++ {
		for x := 2; x < 4; x++ {
			m.Set(x, y, true)
		}
	}
	opts := exact()
	opts.Scale = 2
	shape, err := Vectorize(m, opts)
	require.NoError(t, err)

	assert.Equal(t, "M1.0 1.0 L2.0 1.0 L2.0 2.0 L1.0 2.0 Z", shape.PathData)
	assert.Equal(t, 1, shape.Area)
	assert.Equal(t, geometry.Rect{X: 1, Y: 1, Width: 1, Height: 1}, shape.Bounds)
}

func triangleMask(n int) *segment.Mask {
	rows := make([]string, n)
	for y := range rows {
		var sb strings.Builder
		for x := 0; x < n; x++ {
			if x <= y {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		rows[y] = sb.String()
	}
	return maskOf(rows...)
}

func TestSimplifyZeroKeepsTracedVertices(t *testing.T) {
	t.Parallel()

	m := triangleMask(12)
	traced := TracePolygons(m, segment.Eight)
	require.Len(t, traced, 1)

	shape, err := Vectorize(m, exact())
	require.NoError(t, err)
	require.Len(t, shape.Polygons, 1)
	assert.Equal(t, traced[0].Outer, shape.Polygons[0].Outer)
	assert.Equal(t, len(traced[0].Outer), shape.Points)
	// Two corners per stair step plus the two left-hand corners.
	assert.Len(t, traced[0].Outer, 2*12+2)
}

func TestSimplifyNeverAddsPoints(t *testing.T) {
	t.Parallel()

	m := triangleMask(24)

	prev := -1
	for _, pct := range []float64{0, 0.3, 1, 3, 10, 50, 100} {
		opts := exact()
		opts.Simplify = pct
		shape, err := Vectorize(m, opts)
		require.NoError(t, err)
		if prev >= 0 {
			assert.LessOrEqual(t, shape.Points, prev, "simplify %v", pct)
		}
		require.Len(t, shape.Polygons, 1)
		assert.GreaterOrEqual(t, len(shape.Polygons[0].Outer), 3, "simplify %v", pct)
		assert.Greater(t, shape.Polygons[0].Outer.SignedArea(), 0.0, "simplify %v", pct)
		prev = shape.Points
	}
}

func TestSpanTriangle(t *testing.T) {
	t.Parallel()

	r := geometry.Ring{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 1}, {X: 5, Y: 1}, {X: 0, Y: 1}}
	tri := spanTriangle(r)
	require.Len(t, tri, 3)
	assert.Greater(t, tri.SignedArea(), 0.0)
	assert.Equal(t, geometry.Point2D{X: 0, Y: 0}, tri[0])
}

// canvasPoint maps the first moveto of path data through an SVG transform
// list made of translate and scale operations.
func canvasPoint(t *testing.T, d, transform string) geometry.Point2D {
	t.Helper()

	m := regexp.MustCompile(`^\s*M\s*(-?[\d.]+)[\s,]+(-?[\d.]+)`).FindStringSubmatch(d)
	require.NotNil(t, m, d)
	p := geometry.Point2D{X: mustFloat(t, m[1]), Y: mustFloat(t, m[2])}

	ops := regexp.MustCompile(`(translate|scale)\(([^)]*)\)`).FindAllStringSubmatch(transform, -1)
	require.NotEmpty(t, ops, transform)
	for i := len(ops) - 1; i >= 0; i-- {
		args := strings.FieldsFunc(ops[i][2], func(r rune) bool { return r == ',' || r == ' ' })
		require.NotEmpty(t, args)
		a := mustFloat(t, args[0])
		b := a
		if ops[i][1] == "translate" {
			b = 0
		}
		if len(args) > 1 {
			b = mustFloat(t, args[1])
		}
		if ops[i][1] == "translate" {
			p = geometry.Point2D{X: p.X + a, Y: p.Y + b}
		} else {
			p = geometry.Point2D{X: p.X * a, Y: p.Y * b}
		}
	}
	return p
}

func mustFloat(t *testing.T, s string) float64 {
	t.Helper()
	f, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return f
}

func TestVectorizePotrace(t *testing.T) {
	t.Parallel()

	m := segment.NewMask(image.Rect(0, 0, 40, 50))
	for y := 20; y < 40; y++ {
		for x := 10; x < 30; x++ {
			m.Set(x, y, true)
		}
	}

	tests := []struct {
		name     string
		scale    float64
		prefix   string
		box      geometry.Rect
		wantArea int
	}{
		{"native", 1, "translate(10 20) scale(1)", geometry.Rect{X: 10, Y: 20, Width: 20, Height: 20}, 400},
		{"supersampled", 2, "translate(5 10) scale(0.5)", geometry.Rect{X: 5, Y: 10, Width: 10, Height: 10}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := exact()
			opts.Tracer = TracerPotrace
			opts.Scale = tt.scale
			shape, err := Vectorize(m, opts)
			require.NoError(t, err)

			assert.Empty(t, shape.Polygons)
			assert.Equal(t, 1, shape.Rings)
			assert.Equal(t, tt.box, shape.Bounds)
			assert.Equal(t, tt.wantArea, shape.Area)
			assert.True(t, strings.HasPrefix(shape.Transform, tt.prefix), shape.Transform)

			// The path starts on the outline of the square on the canvas.
			p := canvasPoint(t, shape.PathData, shape.Transform)
			const eps = 0.5
			assert.True(t, p.X >= tt.box.X-eps && p.X <= tt.box.X+tt.box.Width+eps, "x %v", p.X)
			assert.True(t, p.Y >= tt.box.Y-eps && p.Y <= tt.box.Y+tt.box.Height+eps, "y %v", p.Y)
			onEdge := math.Abs(p.X-tt.box.X) < eps || math.Abs(p.X-tt.box.X-tt.box.Width) < eps ||
				math.Abs(p.Y-tt.box.Y) < eps || math.Abs(p.Y-tt.box.Y-tt.box.Height) < eps
			assert.True(t, onEdge, "start %+v is not on the square outline", p)
		})
	}
}

func TestExtractPaths(t *testing.T) {
	t.Parallel()

	doc := `<svg xmlns="http://www.w3.org/2000/svg" width="4" height="4">
<g transform="translate(0,4) scale(1,-1)">
<path d="M0 0 L1 0 L1 1 Z" fill="black"/>
<path d=" M2 2 L3 2 L3 3 Z "/>
</g>
</svg>`
	d, chain, err := extractPaths(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "M0 0 L1 0 L1 1 Z M2 2 L3 2 L3 3 Z", d)
	assert.Equal(t, "translate(0,4) scale(1,-1)", chain)

	mixed := `<svg><g transform="scale(2)"><path d="M0 0 Z"/></g><path d="M1 1 Z"/></svg>`
	_, _, err = extractPaths(strings.NewReader(mixed))
	assert.Error(t, err)
}

func TestParseTracer(t *testing.T) {
	t.Parallel()

	tr, err := ParseTracer("")
	require.NoError(t, err)
	assert.Equal(t, TracerCrack, tr)

	tr, err = ParseTracer("Potrace")
	require.NoError(t, err)
	assert.Equal(t, TracerPotrace, tr)

	_, err = ParseTracer("spline")
	assert.Error(t, err)

	opts := DefaultOptions()
	opts.Simplify = -1
	assert.Error(t, opts.Validate())
}
