package emit

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provmap/internal/vectorize"
	"provmap/pkg/colorutil"
	"provmap/pkg/geometry"
)

func squareRecord(id string, x, y, size float64, c color.NRGBA) Record {
	outer := geometry.Ring{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
	polys := []vectorize.Polygon{{Outer: outer}}
	return Record{
		ID:       id,
		Name:     strings.ToUpper(id[:1]) + id[1:],
		SourceID: id,
		Mapped:   true,
		Color:    NewColor(c),
		AreaPx:   int(size * size),
		BBox:     BBox{X0: x, Y0: y, X1: x + size, Y1: y + size},
		Centroid: Point{X: x + size/2, Y: y + size/2},
		Rings:    1,
		PathData: vectorize.PathData(polys),
		Polygons: polys,
	}
}

func sampleRecords() []Record {
	return []Record{
		squareRecord("roma", 0, 0, 10, color.NRGBA{R: 200, A: 255}),
		squareRecord("ostia", 10, 0, 10, color.NRGBA{G: 200, A: 128}),
	}
}

type svgDoc struct {
	ViewBox string `xml:"viewBox,attr"`
	Group   struct {
		ID       string `xml:"id,attr"`
		FillRule string `xml:"fill-rule,attr"`
		Paths    []struct {
			ID          string `xml:"id,attr"`
			Class       string `xml:"class,attr"`
			Fill        string `xml:"fill,attr"`
			FillOpacity string `xml:"fill-opacity,attr"`
			Name        string `xml:"data-name,attr"`
			Transform   string `xml:"transform,attr"`
			D           string `xml:"d,attr"`
		} `xml:"path"`
	} `xml:"g"`
}

func TestWriteSVG(t *testing.T) {
	records := sampleRecords()
	records[1].Name = `Ostia & "Portus"`
	records[1].Transform = "translate(10 0) scale(0.5)"

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, Canvas{Width: 20, Height: 10}, records))

	var doc svgDoc
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "0 0 20 10", doc.ViewBox)
	assert.Equal(t, GroupID, doc.Group.ID)
	assert.Equal(t, "evenodd", doc.Group.FillRule)
	require.Len(t, doc.Group.Paths, 2)

	p := doc.Group.Paths[0]
	assert.Equal(t, "roma", p.ID)
	assert.Equal(t, ProvinceClass, p.Class)
	assert.Equal(t, "#c80000", p.Fill)
	assert.Empty(t, p.FillOpacity)
	assert.Equal(t, "M0.0 0.0 L10.0 0.0 L10.0 10.0 L0.0 10.0 Z", p.D)

	p = doc.Group.Paths[1]
	assert.Equal(t, `Ostia & "Portus"`, p.Name)
	assert.Equal(t, "0.502", p.FillOpacity)
	assert.Equal(t, "translate(10 0) scale(0.5)", p.Transform)
}

func TestWriteSVGBackground(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, Canvas{Width: 4, Height: 4, Background: color.NRGBA{A: 255}}, nil))
	assert.Contains(t, buf.String(), `id="background"`)

	buf.Reset()
	require.NoError(t, WriteSVG(&buf, Canvas{Width: 4, Height: 4}, nil))
	assert.NotContains(t, buf.String(), `id="background"`)
}

func TestMarshalAndValidateJSON(t *testing.T) {
	data, err := MarshalRecords(sampleRecords())
	require.NoError(t, err)
	require.NoError(t, ValidateJSON(data))
	assert.NotContains(t, string(data), "PathData", "internal fields stay out of the JSON")

	empty, err := MarshalRecords(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(empty))
	require.NoError(t, ValidateJSON(empty))
}

func TestValidateJSONRejects(t *testing.T) {
	valid, err := MarshalRecords(sampleRecords()[:1])
	require.NoError(t, err)

	mutate := func(f func(m map[string]any)) []byte {
		var records []map[string]any
		require.NoError(t, json.Unmarshal(valid, &records))
		f(records[0])
		out, err := json.Marshal(records)
		require.NoError(t, err)
		return out
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"not an array", []byte(`{}`)},
		{"id with whitespace", mutate(func(m map[string]any) { m["id"] = "two words" })},
		{"empty id", mutate(func(m map[string]any) { m["id"] = "" })},
		{"missing name", mutate(func(m map[string]any) { delete(m, "name") })},
		{"unknown field", mutate(func(m map[string]any) { m["extra"] = 1 })},
		{"color out of range", mutate(func(m map[string]any) { m["color"].(map[string]any)["r"] = 300 })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}

func TestBatchCommit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	b, err := NewBatch(dir)
	require.NoError(t, err)

	require.NoError(t, b.WriteBytes(JSONFile, []byte("[]\n")))
	require.NoError(t, b.WriteBytes(SVGFile, []byte("<svg/>")))
	assert.Equal(t, []string{JSONFile, SVGFile}, b.Files())

	_, err = os.Stat(filepath.Join(dir, JSONFile))
	assert.True(t, os.IsNotExist(err), "nothing is visible before commit")

	require.NoError(t, b.Commit())
	got, err := os.ReadFile(filepath.Join(dir, SVGFile))
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestBatchAbortKeepsPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, JSONFile), []byte("old"), 0o644))

	b, err := NewBatch(dir)
	require.NoError(t, err)
	require.NoError(t, b.WriteBytes(JSONFile, []byte("new")))
	b.Abort()

	got, err := os.ReadFile(filepath.Join(dir, JSONFile))
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBatchWriteError(t *testing.T) {
	b, err := NewBatch(t.TempDir())
	require.NoError(t, err)

	err = b.Write(SVGFile, func(w io.Writer) error { return assert.AnError })
	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, b.Files())

	entries, err := os.ReadDir(b.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteHTML(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBatch(dir)
	require.NoError(t, err)
	require.NoError(t, WriteHTML(b, "Provinces"))
	require.NoError(t, b.Commit())

	index, err := os.ReadFile(filepath.Join(dir, HTMLFile))
	require.NoError(t, err)
	assert.Contains(t, string(index), `"provinces.svg"`)
	assert.FileExists(t, filepath.Join(dir, "overlay.js"))
	assert.FileExists(t, filepath.Join(dir, "overlay.css"))
}

func writePair(t *testing.T, canvas Canvas, svgRecords, jsonRecords []Record) ([]byte, []byte) {
	t.Helper()
	var svgBuf bytes.Buffer
	require.NoError(t, WriteSVG(&svgBuf, canvas, svgRecords))
	data, err := MarshalRecords(jsonRecords)
	require.NoError(t, err)
	return svgBuf.Bytes(), data
}

func TestVerifyConsistent(t *testing.T) {
	records := sampleRecords()
	svgData, jsonData := writePair(t, Canvas{Width: 20, Height: 10}, records, records)

	rep, err := Verify(svgData, jsonData)
	require.NoError(t, err)
	assert.True(t, rep.OK(), rep.String())
	assert.Equal(t, 2, rep.Regions)
	assert.Equal(t, [4]float64{0, 0, 20, 10}, rep.ViewBox)
}

func TestVerifyReportsMismatches(t *testing.T) {
	records := sampleRecords()
	extra := squareRecord("portus", 30, 0, 10, color.NRGBA{B: 200, A: 255})

	svgData, jsonData := writePair(t, Canvas{Width: 20, Height: 10},
		records[:1],
		append([]Record{records[1]}, extra))

	rep, err := Verify(svgData, jsonData)
	require.NoError(t, err)
	assert.False(t, rep.OK())
	assert.Equal(t, []string{"ostia", "portus"}, rep.MissingInSVG)
	assert.Equal(t, []string{"roma"}, rep.MissingInJSON)
	assert.Equal(t, []string{"portus"}, rep.OutOfBounds)
	assert.Contains(t, rep.String(), "missing in svg: ostia, portus")
}

func TestVerifyDuplicates(t *testing.T) {
	records := sampleRecords()
	records[1].ID = "roma"
	svgData, jsonData := writePair(t, Canvas{Width: 20, Height: 10}, records, records)

	rep, err := Verify(svgData, jsonData)
	require.NoError(t, err)
	assert.Equal(t, []string{"roma"}, rep.Duplicates)
}

func TestVerifyInvalidInput(t *testing.T) {
	svgData, jsonData := writePair(t, Canvas{Width: 20, Height: 10}, nil, nil)

	_, err := Verify(svgData, []byte(`[{"id":"x"}]`))
	assert.Error(t, err)

	_, err = Verify([]byte("<svg"), jsonData)
	assert.Error(t, err)
}

func TestRenderPreview(t *testing.T) {
	records := sampleRecords()
	canvas := Canvas{Width: 30, Height: 10, Background: color.NRGBA{R: 1, G: 2, B: 3, A: 255}}

	img := RenderPreview(canvas, records, PreviewOptions{})
	assert.Equal(t, color.NRGBA{R: 200, A: 255}, img.NRGBAAt(5, 5))
	assert.Equal(t, canvas.Background, img.NRGBAAt(25, 5))

	// Half-transparent fill blends over the background.
	c := img.NRGBAAt(15, 5)
	assert.Equal(t, uint8(255), c.A)
	assert.Greater(t, c.G, uint8(90))
	assert.Less(t, c.G, uint8(110))
}

func TestRenderPreviewLabels(t *testing.T) {
	records := []Record{squareRecord("x", 0, 0, 40, color.NRGBA{A: 255})}
	canvas := Canvas{Width: 40, Height: 40}

	plain := RenderPreview(canvas, records, PreviewOptions{})
	labelled := RenderPreview(canvas, records, DefaultPreviewOptions())
	assert.NotEqual(t, plain.Pix, labelled.Pix)

	var buf bytes.Buffer
	require.NoError(t, WritePreview(&buf, canvas, records, DefaultPreviewOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestLabelColor(t *testing.T) {
	assert.Equal(t, colorutil.Black, labelColor(color.NRGBA{R: 250, G: 250, B: 250, A: 255}))
	assert.Equal(t, colorutil.White, labelColor(color.NRGBA{R: 20, G: 20, B: 80, A: 255}))
}
