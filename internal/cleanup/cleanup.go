// Package cleanup removes pepper noise from region masks with morphological
// filtering.
package cleanup

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"provmap/internal/segment"
)

// Options configures mask cleanup.
type Options struct {
	KernelSize int // Elliptical kernel diameter in pixels (odd)
	Iterations int // Open/close passes; 0 disables cleanup

	// Claimable, when set, limits pixels that closing may add to the mask.
	// Pixels already in the mask are never re-checked.
	Claimable func(x, y int) bool
}

// DefaultOptions returns a single open+close pass with a 3x3 ellipse.
func DefaultOptions() Options {
	return Options{KernelSize: 3, Iterations: 1}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.Iterations < 0 {
		return fmt.Errorf("invalid denoise iterations %d", o.Iterations)
	}
	if o.Iterations > 0 && (o.KernelSize < 1 || o.KernelSize%2 == 0) {
		return fmt.Errorf("invalid denoise kernel size %d (want odd, >= 1)", o.KernelSize)
	}
	return nil
}

// Denoise opens then closes the mask: opening drops isolated specks and
// closing fills pinholes. The result is trimmed to its new bounds and may be
// empty when the region was nothing but noise.
func Denoise(mask *segment.Mask, opts Options) (*segment.Mask, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Iterations == 0 || mask.Area() == 0 {
		return mask, nil
	}

	// Pad so dilation near the mask edge has room to grow.
	pad := opts.KernelSize * opts.Iterations
	r := mask.Rect
	w, h := r.Dx()+2*pad, r.Dy()+2*pad

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	defer mat.Close()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.At(x, y) {
				mat.SetUCharAt(y-r.Min.Y+pad, x-r.Min.X+pad, 255)
			}
		}
	}

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{opts.KernelSize, opts.KernelSize})
	defer kernel.Close()

	for i := 0; i < opts.Iterations; i++ {
		gocv.MorphologyEx(mat, &mat, gocv.MorphOpen, kernel)
	}
	for i := 0; i < opts.Iterations; i++ {
		gocv.MorphologyEx(mat, &mat, gocv.MorphClose, kernel)
	}

	out := segment.NewMask(r.Inset(-pad))
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			if mat.GetUCharAt(row, col) == 0 {
				continue
			}
			x, y := col+r.Min.X-pad, row+r.Min.Y-pad
			if !mask.At(x, y) && opts.Claimable != nil && !opts.Claimable(x, y) {
				continue
			}
			out.Set(x, y, true)
		}
	}
	return out.Trim(), nil
}
