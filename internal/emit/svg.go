package emit

import (
	"encoding/xml"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"

	"provmap/pkg/colorutil"
)

// Province styling shared with the overlay stylesheet.
const (
	GroupID       = "provinces"
	ProvinceClass = "province"
)

// WriteSVG writes the province document: one path per record inside the
// provinces group, with the record ID as element id.
func WriteSVG(w io.Writer, canvas Canvas, records []Record) error {
	ew := &errWriter{w: w}
	doc := svg.New(ew)

	doc.Startraw(
		fmt.Sprintf(`viewBox="0 0 %d %d"`, canvas.Width, canvas.Height),
		`preserveAspectRatio="xMidYMid meet"`,
	)
	if bg := canvas.Background; bg.A > 0 {
		attrs := []string{`id="background"`, attr("fill", colorutil.CSS(bg))}
		if bg.A < 255 {
			attrs = append(attrs, attr("fill-opacity", formatOpacity(bg)))
		}
		doc.Rect(0, 0, canvas.Width, canvas.Height, attrs...)
	}

	doc.Group(
		attr("id", GroupID),
		`fill-rule="evenodd"`,
		`stroke="rgba(255,255,255,0.35)"`,
		`stroke-width="1"`,
	)
	for _, r := range records {
		fill := r.Color.NRGBA()
		attrs := []string{
			attr("id", r.ID),
			attr("class", ProvinceClass),
			attr("fill", colorutil.CSS(fill)),
			attr("data-name", r.Name),
		}
		if fill.A < 255 {
			attrs = append(attrs, attr("fill-opacity", formatOpacity(fill)))
		}
		if r.Transform != "" {
			attrs = append(attrs, attr("transform", r.Transform))
		}
		doc.Path(r.PathData, attrs...)
	}
	doc.Gend()
	doc.End()

	if ew.err != nil {
		return fmt.Errorf("failed to write svg: %w", ew.err)
	}
	return nil
}

// attr formats an escaped name="value" pair. svgo passes strings containing
// '=' through unchanged.
func attr(name, value string) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString(`="`)
	_ = xml.EscapeText(&sb, []byte(value))
	sb.WriteByte('"')
	return sb.String()
}

func formatOpacity(c color.NRGBA) string {
	return strconv.FormatFloat(colorutil.Opacity(c), 'f', 3, 64)
}

// errWriter remembers the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
