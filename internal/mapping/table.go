// Package mapping loads color to region ID tables and resolves region colors
// to stable, unique identifiers.
package mapping

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"provmap/internal/errors"
	"provmap/pkg/colorutil"
)

// Entry is one row of a mapping table.
type Entry struct {
	Color color.NRGBA
	ID    string
	Name  string // Display name, may be empty
	Sea   bool
	Line  int // 1-based source line
}

// Table is a parsed mapping file.
type Table struct {
	Entries []Entry
	byColor map[color.NRGBA]int
}

// Recognized header names per column.
var (
	colorHeaders = []string{"color", "colour", "colour_group", "color_group"}
	idHeaders    = []string{"id", "key"}
	nameHeaders  = []string{"name", "display_name"}
	seaHeaders   = []string{"is_sea", "sea"}
)

type columns struct {
	color, id, name, sea int
}

// Load reads a mapping table from a CSV file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open mapping file: %w", err)).
			Category(errors.CategoryMapping).
			Context("file", path).
			Build()
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		var ee *errors.EnhancedError
		if errors.As(err, &ee) {
			return nil, errors.New(ee.Err).
				Category(ee.Category).
				Context("file", path).
				Context("line", ee.Context["line"]).
				Build()
		}
		return nil, err
	}
	return t, nil
}

// Parse reads a CSV mapping table with a header row. Malformed rows,
// missing columns, empty IDs and duplicate colors are errors.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, mappingError(1, fmt.Errorf("mapping file is empty"))
	}
	if err != nil {
		return nil, mappingError(1, fmt.Errorf("failed to read header: %w", err))
	}
	cols, err := findColumns(header)
	if err != nil {
		return nil, mappingError(1, err)
	}

	t := &Table{byColor: make(map[color.NRGBA]int)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, mappingError(line, fmt.Errorf("malformed row: %w", err))
		}
		line, _ := cr.FieldPos(0)
		if isBlank(rec) {
			continue
		}

		e, err := parseEntry(rec, cols)
		if err != nil {
			return nil, mappingError(line, err)
		}
		e.Line = line
		if prev, dup := t.byColor[e.Color]; dup {
			return nil, mappingError(line, fmt.Errorf("duplicate color %s (first defined on line %d)",
				colorutil.Hex(e.Color), t.Entries[prev].Line))
		}
		t.byColor[e.Color] = len(t.Entries)
		t.Entries = append(t.Entries, e)
	}
	return t, nil
}

func mappingError(line int, err error) error {
	return errors.New(err).
		Category(errors.CategoryMapping).
		Context("line", line).
		Build()
}

func findColumns(header []string) (columns, error) {
	cols := columns{color: -1, id: -1, name: -1, sea: -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch {
		case cols.color < 0 && contains(colorHeaders, h):
			cols.color = i
		case cols.id < 0 && contains(idHeaders, h):
			cols.id = i
		case cols.name < 0 && contains(nameHeaders, h):
			cols.name = i
		case cols.sea < 0 && contains(seaHeaders, h):
			cols.sea = i
		}
	}
	if cols.color < 0 {
		return cols, fmt.Errorf("missing color column (want one of %s)", strings.Join(colorHeaders, ", "))
	}
	if cols.id < 0 {
		return cols, fmt.Errorf("missing id column (want one of %s)", strings.Join(idHeaders, ", "))
	}
	return cols, nil
}

func parseEntry(rec []string, cols columns) (Entry, error) {
	field := func(i int) (string, bool) {
		if i < 0 || i >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}

	var e Entry
	raw, ok := field(cols.color)
	if !ok {
		return e, fmt.Errorf("missing color field")
	}
	c, err := colorutil.ParseRGBA(raw)
	if err != nil {
		return e, err
	}
	e.Color = c

	id, ok := field(cols.id)
	if !ok || id == "" {
		return e, fmt.Errorf("empty id")
	}
	// IDs become SVG element ids and runtime data keys.
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return e, fmt.Errorf("id %q contains whitespace", id)
	}
	e.ID = norm.NFC.String(id)

	if name, ok := field(cols.name); ok {
		e.Name = norm.NFC.String(name)
	}

	if s, ok := field(cols.sea); ok && s != "" {
		sea, err := parseFlag(s)
		if err != nil {
			return e, err
		}
		e.Sea = sea
	}
	return e, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid is_sea value %q", s)
	}
	return v, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Entries)
}

// Lookup returns the entry for c: an exact color match when present,
// otherwise the nearest entry within tolerance under metric m. Ties go to
// the entry defined first.
func (t *Table) Lookup(c color.NRGBA, tolerance int, m colorutil.Metric) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	if i, ok := t.byColor[c]; ok {
		return t.Entries[i], true
	}
	if tolerance <= 0 {
		return Entry{}, false
	}

	best, bestDist := -1, 0.0
	for i, e := range t.Entries {
		if !colorutil.Within(c, e.Color, tolerance, m) {
			continue
		}
		d := colorutil.Distance(c, e.Color, m)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return t.Entries[best], true
}
