package gamedata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// row is one table record keyed by header name. Missing columns read as "".
type row map[string]string

func (r row) get(col string) string {
	return strings.TrimSpace(r[col])
}

// readTable reads a delimited file with a header line. Quoting is lenient
// and short rows are allowed, since exported game tables are not always
// well-formed CSV.
func readTable(path string, delim rune) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", filepath.Base(path), err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		rw := make(row, len(header))
		for i, v := range rec {
			if i < len(header) {
				rw[header[i]] = v
			}
		}
		rows = append(rows, rw)
	}
}

// tsvFiles lists the .tsv files of each folder in name order.
func tsvFiles(folders []string) ([]string, error) {
	var files []string
	for _, dir := range folders {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("table folder: %w", err)
		}
		matches, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}

// multiMap is a string to list map that remembers key insertion order and
// keeps values unique per key.
type multiMap struct {
	keys   []string
	values map[string][]string
}

func newMultiMap() *multiMap {
	return &multiMap{values: map[string][]string{}}
}

func (m *multiMap) add(key, value string) {
	vs, ok := m.values[key]
	if !ok {
		m.keys = append(m.keys, key)
	}
	for _, v := range vs {
		if v == value {
			return
		}
	}
	m.values[key] = append(vs, value)
}

func (m *multiMap) get(key string) []string {
	return m.values[key]
}

func (m *multiMap) len() int {
	return len(m.keys)
}
