// Package segment splits a color-coded lookup bitmap into connected regions of
// uniform color.
package segment

import (
	"fmt"
	"image"
	"image/color"

	"provmap/pkg/colorutil"
)

// Connectivity is the pixel neighbourhood used when growing regions.
type Connectivity int

const (
	Four  Connectivity = 4
	Eight Connectivity = 8
)

// ParseConnectivity validates a neighbourhood size. Zero selects Eight.
func ParseConnectivity(n int) (Connectivity, error) {
	switch n {
	case 0, 8:
		return Eight, nil
	case 4:
		return Four, nil
	default:
		return 0, fmt.Errorf("invalid connectivity %d (want 4 or 8)", n)
	}
}

// Options configures segmentation.
type Options struct {
	Tolerance         int              // Max distance from the seed color (0 = exact)
	Metric            colorutil.Metric // Distance metric
	Connectivity      Connectivity     // 4 or 8
	Background        color.NRGBA      // Color never assigned to a region
	ExcludeBackground bool             // Skip Background pixels
}

// DefaultOptions returns exact-match, 8-connected segmentation that skips
// fully transparent pixels.
func DefaultOptions() Options {
	return Options{
		Tolerance:         0,
		Metric:            colorutil.MetricMax,
		Connectivity:      Eight,
		Background:        colorutil.Transparent,
		ExcludeBackground: true,
	}
}

// Region is one connected group of same-colored pixels.
type Region struct {
	Label  int             // 1-based label, discovery order
	Color  color.NRGBA     // Seed pixel color
	Seed   image.Point     // First pixel in row-major order
	Bounds image.Rectangle // Pixel bounding box
	Area   int             // Pixel count
	Mask   *Mask
}

// Result holds all regions of an image plus the full label raster.
type Result struct {
	Width   int
	Height  int
	Regions []*Region
	Labels  []int32 // Row-major, 0 = background
}

// LabelAt returns the region label at (x, y), or 0.
func (r *Result) LabelAt(x, y int) int {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return 0
	}
	return int(r.Labels[y*r.Width+x])
}

var (
	offsets4 = []image.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	offsets8 = []image.Point{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
)

// Segment labels every non-background pixel of img. Regions are discovered
// by scanning rows top to bottom; each unlabeled pixel seeds a flood fill in
// which a neighbour joins when its color is within Tolerance of the seed.
func Segment(img *image.NRGBA, opts Options) (*Result, error) {
	if opts.Tolerance < 0 {
		return nil, fmt.Errorf("invalid tolerance %d", opts.Tolerance)
	}
	conn, err := ParseConnectivity(int(opts.Connectivity))
	if err != nil {
		return nil, err
	}
	metric, err := colorutil.ParseMetric(string(opts.Metric))
	if err != nil {
		return nil, err
	}
	offsets := offsets8
	if conn == Four {
		offsets = offsets4
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	res := &Result{Width: w, Height: h, Labels: make([]int32, w*h)}

	at := func(x, y int) color.NRGBA { return img.NRGBAAt(b.Min.X+x, b.Min.Y+y) }
	isBackground := func(c color.NRGBA) bool {
		if !opts.ExcludeBackground {
			return false
		}
		return c == opts.Background || (opts.Background.A == 0 && c.A == 0)
	}

	var stack []image.Point
	var pixels []image.Point
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if res.Labels[y*w+x] != 0 {
				continue
			}
			seed := at(x, y)
			if isBackground(seed) {
				continue
			}

			label := int32(len(res.Regions) + 1)
			res.Labels[y*w+x] = label
			stack = append(stack[:0], image.Pt(x, y))
			pixels = pixels[:0]
			bounds := image.Rect(x, y, x+1, y+1)

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				pixels = append(pixels, p)
				bounds = bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

				for _, d := range offsets {
					nx, ny := p.X+d.X, p.Y+d.Y
					if nx < 0 || ny < 0 || nx >= w || ny >= h || res.Labels[ny*w+nx] != 0 {
						continue
					}
					c := at(nx, ny)
					if isBackground(c) || !colorutil.Within(seed, c, opts.Tolerance, metric) {
						continue
					}
					res.Labels[ny*w+nx] = label
					stack = append(stack, image.Pt(nx, ny))
				}
			}

			mask := NewMask(bounds)
			for _, p := range pixels {
				mask.Set(p.X, p.Y, true)
			}
			res.Regions = append(res.Regions, &Region{
				Label:  int(label),
				Color:  seed,
				Seed:   image.Pt(x, y),
				Bounds: bounds,
				Area:   len(pixels),
				Mask:   mask,
			})
		}
	}
	return res, nil
}
