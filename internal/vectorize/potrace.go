package vectorize

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/gotranspile/gotrace"

	"provmap/internal/segment"
)

// tracePotrace fits curves to the mask and returns the path data plus the
// transform placing it on the canvas. Potrace works on a bitmap covering the
// mask's bounds, so the transform carries the bounds offset, the
// supersampling scale and any transforms potrace put on its own output.
func tracePotrace(mask *segment.Mask, scale float64) (string, string, error) {
	r := mask.Bounds()
	gray := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			// Black marks the foreground.
			if !mask.At(r.Min.X+x, r.Min.Y+y) {
				gray.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	bm := gotrace.BitmapFromGray(gray, nil)
	paths, err := gotrace.Trace(bm, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to trace mask: %w", err)
	}

	var buf bytes.Buffer
	if err := gotrace.Render("svg", nil, &buf, paths, r.Dx(), r.Dy()); err != nil {
		return "", "", fmt.Errorf("failed to render traced mask: %w", err)
	}

	d, inner, err := extractPaths(&buf)
	if err != nil {
		return "", "", err
	}
	if d == "" {
		return "", "", fmt.Errorf("%w: potrace found no outline", ErrTooSmall)
	}

	transform := fmt.Sprintf("translate(%s %s) scale(%s)",
		formatNum(float64(r.Min.X)/scale), formatNum(float64(r.Min.Y)/scale), formatNum(1/scale))
	if inner != "" {
		transform += " " + inner
	}
	return d, transform, nil
}

// extractPaths collects the d attributes of every path element in an SVG
// document, together with the transform chain applying to them. All paths
// must share one transform chain.
func extractPaths(r io.Reader) (string, string, error) {
	dec := xml.NewDecoder(r)
	var (
		stack      []string
		ds         []string
		chain      string
		chainIsSet bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to parse traced svg: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var d, tr string
			for _, a := range t.Attr {
				switch a.Name.Local {
				case "d":
					d = a.Value
				case "transform":
					tr = a.Value
				}
			}
			stack = append(stack, tr)
			if t.Name.Local != "path" || strings.TrimSpace(d) == "" {
				continue
			}
			c := joinTransforms(stack)
			if chainIsSet && c != chain {
				return "", "", fmt.Errorf("traced svg mixes transforms %q and %q", chain, c)
			}
			chain, chainIsSet = c, true
			ds = append(ds, strings.TrimSpace(d))
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return strings.Join(ds, " "), chain, nil
}

func joinTransforms(stack []string) string {
	var parts []string
	for _, t := range stack {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
