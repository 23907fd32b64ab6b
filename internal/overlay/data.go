package overlay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// RegionData maps region ID to culture (faction) key to unit keys.
type RegionData map[string]map[string][]string

// Localization holds display names keyed by game key.
type Localization struct {
	Regions  map[string]string `json:"regions"`
	Factions map[string]string `json:"factions"`
	Units    map[string]string `json:"units"`
}

// Data is everything the overlay reads at runtime.
type Data struct {
	RegionData RegionData
	Loc        Localization
	Cultures   []string
	RegionIDs  []string // IDs from provinces.json, in document order
}

// LoadData reads the runtime data files from dir. A file that is missing or
// malformed is logged and left empty, matching the browser's behaviour.
func LoadData(dir string, log *slog.Logger) *Data {
	d := &Data{}
	load := func(name string, v any) {
		if err := readJSON(filepath.Join(dir, name), v); err != nil {
			log.Warn("overlay data unavailable, using fallbacks", "file", name, "error", err)
		}
	}
	load(RegionDataFile, &d.RegionData)
	load(LocFile, &d.Loc)
	load(CulturesFile, &d.Cultures)

	var records []struct {
		ID string `json:"id"`
	}
	load(ProvincesFile, &records)
	for _, r := range records {
		d.RegionIDs = append(d.RegionIDs, r.ID)
	}
	return d
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// jsPayload is the object handed to createOverlayContext.
func (d *Data) jsPayload() ([]byte, error) {
	return json.Marshal(map[string]any{
		"regionData": d.RegionData,
		"loc":        d.Loc,
		"cultures":   d.Cultures,
	})
}
