// Package emit writes extracted regions as provinces.svg and provinces.json
// plus the optional HTML scaffold and raster preview.
package emit

import (
	"image/color"

	"provmap/internal/vectorize"
)

// Output file names.
const (
	SVGFile     = "provinces.svg"
	JSONFile    = "provinces.json"
	HTMLFile    = "index.html"
	PreviewFile = "provinces_preview.png"
)

// Color is an RGBA color in JSON form.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// NewColor converts a color.NRGBA.
func NewColor(c color.NRGBA) Color {
	return Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// NRGBA converts back to a color.NRGBA.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// BBox is an axis-aligned bounding box given by its corners.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Record is one emitted region. The JSON fields form provinces.json; the
// rest feeds the SVG and preview writers.
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SourceID string `json:"source_id"`
	Mapped   bool   `json:"mapped"`
	Color    Color  `json:"color"`
	AreaPx   int    `json:"area_px"`
	BBox     BBox   `json:"bbox"`
	Centroid Point  `json:"centroid"`
	Rings    int    `json:"rings"`
	Holes    int    `json:"holes"`

	PathData  string              `json:"-"`
	Transform string              `json:"-"`
	Polygons  []vectorize.Polygon `json:"-"`
}

// Canvas describes the output document.
type Canvas struct {
	Width      int
	Height     int
	Background color.NRGBA // Drawn behind the regions when alpha > 0
}
