package segment

import (
	"image"

	"provmap/pkg/geometry"
)

// Mask is a binary pixel set stored over its bounding rectangle. Coordinates
// are absolute image coordinates; pixels outside Rect are never set.
type Mask struct {
	Rect image.Rectangle
	bits []bool
}

// NewMask allocates an empty mask covering r.
func NewMask(r image.Rectangle) *Mask {
	r = r.Canon()
	return &Mask{Rect: r, bits: make([]bool, r.Dx()*r.Dy())}
}

// Set marks or clears the pixel at (x, y). Points outside Rect are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if !(image.Point{x, y}).In(m.Rect) {
		return
	}
	m.bits[(y-m.Rect.Min.Y)*m.Rect.Dx()+(x-m.Rect.Min.X)] = v
}

// At reports whether (x, y) belongs to the mask.
func (m *Mask) At(x, y int) bool {
	if m == nil || !(image.Point{x, y}).In(m.Rect) {
		return false
	}
	return m.bits[(y-m.Rect.Min.Y)*m.Rect.Dx()+(x-m.Rect.Min.X)]
}

// Area returns the number of set pixels.
func (m *Mask) Area() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Bounds returns the tight bounding rectangle of the set pixels, or an empty
// rectangle when the mask is empty.
func (m *Mask) Bounds() image.Rectangle {
	var out image.Rectangle
	if m == nil {
		return out
	}
	first := true
	for y := m.Rect.Min.Y; y < m.Rect.Max.Y; y++ {
		for x := m.Rect.Min.X; x < m.Rect.Max.X; x++ {
			if !m.At(x, y) {
				continue
			}
			px := image.Rect(x, y, x+1, y+1)
			if first {
				out = px
				first = false
			} else {
				out = out.Union(px)
			}
		}
	}
	return out
}

// Trim returns a copy of the mask whose Rect is shrunk to Bounds.
func (m *Mask) Trim() *Mask {
	b := m.Bounds()
	out := NewMask(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if m.At(x, y) {
				out.Set(x, y, true)
			}
		}
	}
	return out
}

// Centroid returns the mean of the set pixel centers.
func (m *Mask) Centroid() geometry.Point2D {
	var sx, sy float64
	n := 0
	for y := m.Rect.Min.Y; y < m.Rect.Max.Y; y++ {
		for x := m.Rect.Min.X; x < m.Rect.Max.X; x++ {
			if m.At(x, y) {
				sx += float64(x) + 0.5
				sy += float64(y) + 0.5
				n++
			}
		}
	}
	if n == 0 {
		return geometry.Point2D{}
	}
	return geometry.Point2D{X: sx / float64(n), Y: sy / float64(n)}
}
