// Package gamedata builds the overlay's runtime data files (region_data.json,
// cultures_list.json and loc_data.json) from exported game tables.
package gamedata

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocSource is one localization table and the key prefix stripped from it.
type LocSource struct {
	File   string `yaml:"file"`
	Prefix string `yaml:"prefix"`
}

// Manifest lists the game tables a build reads. Relative paths resolve
// against the manifest's directory.
type Manifest struct {
	// Factions is the faction table (key, military_group, subculture).
	Factions string `yaml:"factions"`
	// ExcludeFactionPrefixes drops factions whose key starts with any prefix.
	ExcludeFactionPrefixes []string `yaml:"exclude_faction_prefixes"`
	// RegionResources is the region to unit resource CSV (Key, Resource).
	RegionResources string `yaml:"region_resources"`
	// UnitResources are folders of TSV tables (unit,
	// region_unit_resource_requirement, land_unit).
	UnitResources []string `yaml:"unit_resources"`
	// UnitGroups are folders of TSV tables (unit, military_group).
	UnitGroups []string `yaml:"unit_groups"`

	Localization struct {
		Regions  LocSource `yaml:"regions"`
		Factions LocSource `yaml:"factions"`
		Units    LocSource `yaml:"units"`
	} `yaml:"localization"`

	dir string
}

// DefaultExcludePrefixes are the rebel, separatist and placeholder factions
// that never recruit from regions.
var DefaultExcludePrefixes = []string{
	"bel_fact_",
	"cha_fact_",
	"att_fact_separatist_",
	"att_fact_rebel_",
}

// LoadManifest reads a YAML manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// ParseManifest decodes manifest YAML. Unknown keys are rejected so typos
// do not silently drop a table.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{ExcludeFactionPrefixes: DefaultExcludePrefixes}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the tables needed for region data are named.
func (m *Manifest) Validate() error {
	switch {
	case m.Factions == "":
		return fmt.Errorf("manifest: factions table is required")
	case m.RegionResources == "":
		return fmt.Errorf("manifest: region_resources table is required")
	case len(m.UnitResources) == 0:
		return fmt.Errorf("manifest: at least one unit_resources folder is required")
	case len(m.UnitGroups) == 0:
		return fmt.Errorf("manifest: at least one unit_groups folder is required")
	}
	return nil
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.dir, p)
}

func (m *Manifest) resolveAll(ps []string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = m.resolve(p)
	}
	return out
}
