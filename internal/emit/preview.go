package emit

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"provmap/pkg/colorutil"
	"provmap/pkg/geometry"
)

// PreviewOptions configures RenderPreview.
type PreviewOptions struct {
	Labels   bool    // Draw region IDs at their centroids
	FontSize float64 // Label size in points; 0 selects the bitmap fallback font
}

// DefaultPreviewOptions labels regions with 10pt Go Regular.
func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{Labels: true, FontSize: 10}
}

// RenderPreview rasterizes the emitted polygons in their source colors, so
// the vector output can be compared against the lookup bitmap at a glance.
// Records without polygons (potrace output) only get a label.
func RenderPreview(canvas Canvas, records []Record, opts PreviewOptions) *image.NRGBA {
	w, h := canvas.Width, canvas.Height
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if canvas.Background.A > 0 {
		draw.Draw(img, img.Bounds(), image.NewUniform(canvas.Background), image.Point{}, draw.Src)
	}

	for _, r := range records {
		if len(r.Polygons) == 0 {
			continue
		}
		z := vector.NewRasterizer(w, h)
		z.DrawOp = draw.Over
		for _, p := range r.Polygons {
			rings := append([]geometry.Ring{p.Outer}, p.Holes...)
			for _, rg := range rings {
				ring := toPoints(rg)
				if len(ring) < 3 {
					continue
				}
				z.MoveTo(ring[0].x, ring[0].y)
				for _, pt := range ring[1:] {
					z.LineTo(pt.x, pt.y)
				}
				z.ClosePath()
			}
		}
		z.Draw(img, img.Bounds(), image.NewUniform(r.Color.NRGBA()), image.Point{})
	}

	if opts.Labels {
		face := previewFace(opts.FontSize)
		for _, r := range records {
			drawLabel(img, r.ID, r.Centroid, labelColor(r.Color.NRGBA()), face)
		}
	}
	return img
}

// WritePreview renders and PNG-encodes the preview.
func WritePreview(w io.Writer, canvas Canvas, records []Record, opts PreviewOptions) error {
	if err := png.Encode(w, RenderPreview(canvas, records, opts)); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}

type fixedPoint struct{ x, y float32 }

func toPoints(ring geometry.Ring) []fixedPoint {
	out := make([]fixedPoint, len(ring))
	for i, p := range ring {
		out[i] = fixedPoint{float32(p.X), float32(p.Y)}
	}
	return out
}

func drawLabel(img draw.Image, text string, at Point, c color.Color, face font.Face) {
	width := font.MeasureString(face, text).Ceil()
	m := face.Metrics()
	x := int(at.X) - width/2
	y := int(at.Y) + (m.Ascent.Ceil()-m.Descent.Ceil())/2

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// labelColor picks black or white, whichever reads better on fill.
func labelColor(fill color.NRGBA) color.Color {
	luma := 0.299*float64(fill.R) + 0.587*float64(fill.G) + 0.114*float64(fill.B)
	if luma > 140 {
		return colorutil.Black
	}
	return colorutil.White
}

var (
	goRegularOnce sync.Once
	goRegular     *opentype.Font
	goRegularErr  error
)

func previewFace(size float64) font.Face {
	if size <= 0 {
		return basicfont.Face7x13
	}
	goRegularOnce.Do(func() {
		goRegular, goRegularErr = opentype.Parse(goregular.TTF)
	})
	if goRegularErr != nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(goRegular, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
