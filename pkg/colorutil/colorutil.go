// Package colorutil provides shared color parsing and comparison for lookup bitmaps.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Common colors used by the pipeline defaults.
var (
	Transparent = color.NRGBA{}
	Black       = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	White       = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// Metric selects how the distance between two colors is measured.
type Metric string

const (
	// MetricMax is the largest per-channel difference (an RGBA box test).
	MetricMax Metric = "max"
	// MetricEuclidean is the straight-line distance in RGBA space.
	MetricEuclidean Metric = "euclidean"
	// MetricLab is the CIE L*a*b* distance scaled to roughly 0-100.
	MetricLab Metric = "lab"
)

// ParseMetric validates a metric name. An empty name selects MetricMax.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MetricMax, nil
	case MetricMax, MetricEuclidean, MetricLab:
		return m, nil
	default:
		return "", fmt.Errorf("unknown color metric %q (want max, euclidean or lab)", s)
	}
}

// Distance returns the distance between two colors under metric m.
// Alpha always participates as a plain channel difference.
func Distance(a, b color.NRGBA, m Metric) float64 {
	dr := absDiff(a.R, b.R)
	dg := absDiff(a.G, b.G)
	db := absDiff(a.B, b.B)
	da := absDiff(a.A, b.A)

	switch m {
	case MetricEuclidean:
		return math.Sqrt(dr*dr + dg*dg + db*db + da*da)
	case MetricLab:
		ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
		cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
		return math.Max(ca.DistanceLab(cb)*100, da)
	default:
		return math.Max(math.Max(dr, dg), math.Max(db, da))
	}
}

// Within reports whether two colors are at most tolerance apart.
func Within(a, b color.NRGBA, tolerance int, m Metric) bool {
	if a == b {
		return true
	}
	return Distance(a, b, m) <= float64(tolerance)
}

// ParseRGBA parses a color token. Accepted forms are "#RRGGBB", "RRGGBB",
// "#RRGGBBAA", "RRGGBBAA" and decimal channel lists "R,G,B" or "R,G,B,A"
// separated by commas, semicolons or whitespace. Alpha defaults to 255.
func ParseRGBA(s string) (color.NRGBA, error) {
	tok := strings.TrimSpace(s)
	if tok == "" {
		return color.NRGBA{}, fmt.Errorf("empty color")
	}

	if hex := strings.TrimPrefix(tok, "#"); isHex(hex) && (len(hex) == 6 || len(hex) == 8) {
		return parseHex(hex)
	}

	fields := strings.FieldsFunc(tok, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 && len(fields) != 4 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: want 3 or 4 channels or a hex value", s)
	}

	var ch [4]uint8
	ch[3] = 255
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q: channel %d: %w", s, i, err)
		}
		ch[i] = uint8(v)
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

func parseHex(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex("#" + hex[:6])
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	out := color.NRGBA{R: r, G: g, B: b, A: 255}
	if len(hex) == 8 {
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid hex alpha %q: %w", hex, err)
		}
		out.A = uint8(a)
	}
	return out, nil
}

// Hex formats a color as lowercase "rrggbb", appending "aa" when not opaque.
func Hex(c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// CSS formats a color for use in SVG/CSS attributes.
func CSS(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Opacity returns the alpha channel as a 0-1 fraction.
func Opacity(c color.NRGBA) float64 {
	return float64(c.A) / 255
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func absDiff(a, b uint8) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}
