// Package raster provides lookup bitmap loading and resampling.
package raster

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Bitmap is a decoded lookup image normalized to non-premultiplied RGBA.
type Bitmap struct {
	Path   string       // Original file path
	Format string       // Decoder name (png, tga, bmp, ...)
	Image  *image.NRGBA // Pixel data, origin at (0,0)
}

// Width returns the image width in pixels.
func (b *Bitmap) Width() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (b *Bitmap) Height() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dy()
}

// Load decodes the image at path. TGA files are selected by extension since
// the format has no magic number; everything else goes through image.Decode.
func Load(path string) (*Bitmap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	bm, err := Decode(file, ext == ".tga")
	if err != nil {
		return nil, err
	}
	bm.Path = path
	return bm, nil
}

// Decode reads a bitmap from r. Set isTGA for Truevision TGA input.
func Decode(r io.Reader, isTGA bool) (*Bitmap, error) {
	var (
		img    image.Image
		format string
		err    error
	)
	if isTGA {
		img, err = tga.Decode(r)
		format = "tga"
	} else {
		img, format, err = image.Decode(r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("failed to decode image: empty %dx%d bitmap", b.Dx(), b.Dy())
	}

	return &Bitmap{Format: format, Image: ToNRGBA(img)}, nil
}

// ToNRGBA converts any image into an *image.NRGBA with origin (0,0).
// An NRGBA already anchored at the origin is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Supersample scales img up by an integer factor with nearest-neighbour
// sampling, so every source pixel becomes a factor x factor block of the
// same color. A factor <= 1 returns img unchanged.
func Supersample(img *image.NRGBA, factor int) *image.NRGBA {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
