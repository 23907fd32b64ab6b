package emit

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/provinces.schema.json
var provincesSchema []byte

// regionIDFormat accepts non-empty IDs without whitespace, since IDs are
// used verbatim as SVG element ids and runtime data keys.
type regionIDFormat struct{}

func (regionIDFormat) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok {
		return false
	}
	return s != "" && strings.IndexFunc(s, unicode.IsSpace) < 0
}

func init() {
	gojsonschema.FormatCheckers.Add("region_id", regionIDFormat{})
}

// MarshalRecords encodes records as indented provinces.json content.
func MarshalRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return append(data, '\n'), nil
}

// ValidateJSON checks provinces.json content against the embedded schema.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(provincesSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
