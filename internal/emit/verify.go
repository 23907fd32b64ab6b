package emit

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rustyoz/svg"
)

// VerifyReport summarizes a consistency check of an SVG/JSON pair.
type VerifyReport struct {
	Regions       int
	ViewBox       [4]float64
	MissingInSVG  []string // JSON IDs without an SVG element
	MissingInJSON []string // SVG IDs without a JSON record
	Duplicates    []string // IDs occurring more than once in either file
	OutOfBounds   []string // Records whose bbox leaves the viewBox
}

// OK reports whether no problems were found.
func (r *VerifyReport) OK() bool {
	return len(r.MissingInSVG) == 0 && len(r.MissingInJSON) == 0 &&
		len(r.Duplicates) == 0 && len(r.OutOfBounds) == 0
}

func (r *VerifyReport) String() string {
	if r.OK() {
		return fmt.Sprintf("%d regions, consistent", r.Regions)
	}
	var parts []string
	add := func(label string, ids []string) {
		if len(ids) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", label, strings.Join(ids, ", ")))
		}
	}
	add("missing in svg", r.MissingInSVG)
	add("missing in json", r.MissingInJSON)
	add("duplicate", r.Duplicates)
	add("outside viewBox", r.OutOfBounds)
	return strings.Join(parts, "; ")
}

// Verify re-reads a provinces.svg/provinces.json pair and checks that the
// ID sets match one to one and every record lies inside the SVG viewBox.
// Errors are returned only for unreadable input; inconsistencies are listed
// in the report.
func Verify(svgData, jsonData []byte) (*VerifyReport, error) {
	if err := ValidateJSON(jsonData); err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(jsonData, &records); err != nil {
		return nil, fmt.Errorf("failed to decode provinces json: %w", err)
	}

	doc, err := svg.ParseSvg(string(svgData), SVGFile, 1.0)
	if err != nil {
		return nil, fmt.Errorf("failed to parse provinces svg: %w", err)
	}
	vb, err := parseViewBox(doc.ViewBox)
	if err != nil {
		return nil, err
	}

	svgIDs, err := provinceIDs(svgData)
	if err != nil {
		return nil, err
	}

	rep := &VerifyReport{Regions: len(records), ViewBox: vb}
	dups := map[string]bool{}

	inSVG := map[string]bool{}
	for _, id := range svgIDs {
		if inSVG[id] {
			dups[id] = true
		}
		inSVG[id] = true
	}
	inJSON := map[string]bool{}
	for _, r := range records {
		if inJSON[r.ID] {
			dups[r.ID] = true
		}
		inJSON[r.ID] = true
		if !inSVG[r.ID] {
			rep.MissingInSVG = append(rep.MissingInSVG, r.ID)
		}
		if r.BBox.X0 < vb[0] || r.BBox.Y0 < vb[1] || r.BBox.X1 > vb[0]+vb[2] || r.BBox.Y1 > vb[1]+vb[3] {
			rep.OutOfBounds = append(rep.OutOfBounds, r.ID)
		}
	}
	for _, id := range svgIDs {
		if !inJSON[id] {
			rep.MissingInJSON = append(rep.MissingInJSON, id)
		}
	}
	for id := range dups {
		rep.Duplicates = append(rep.Duplicates, id)
	}
	sort.Strings(rep.Duplicates)
	return rep, nil
}

func parseViewBox(s string) ([4]float64, error) {
	var vb [4]float64
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) != 4 {
		return vb, fmt.Errorf("invalid viewBox %q", s)
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return vb, fmt.Errorf("invalid viewBox %q: %w", s, err)
		}
		vb[i] = v
	}
	return vb, nil
}

// provinceIDs returns the ids of all path elements carrying the province
// class, in document order.
func provinceIDs(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var ids []string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse provinces svg: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "path" {
			continue
		}
		var id string
		province := false
		for _, a := range start.Attr {
			switch a.Name.Local {
			case "id":
				id = a.Value
			case "class":
				for _, c := range strings.Fields(a.Value) {
					province = province || c == ProvinceClass
				}
			}
		}
		if province {
			ids = append(ids, id)
		}
	}
}
