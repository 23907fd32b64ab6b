package emit

import (
	"io"

	"provmap/internal/overlay"
)

// WriteHTML stages the overlay scaffold next to the SVG: index.html plus the
// overlay script and stylesheet it references.
func WriteHTML(b *Batch, title string) error {
	if err := b.Write(HTMLFile, func(w io.Writer) error {
		return overlay.RenderIndex(w, overlay.DefaultPage(title, SVGFile))
	}); err != nil {
		return err
	}
	if err := b.WriteBytes(overlay.ScriptFile, overlay.Script()); err != nil {
		return err
	}
	return b.WriteBytes(overlay.StyleFile, overlay.Stylesheet())
}
