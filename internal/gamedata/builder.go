package gamedata

import (
	"encoding/json"
	"log/slog"
	"strings"

	"provmap/internal/emit"
	"provmap/internal/errors"
	"provmap/internal/overlay"
)

// Result is the runtime data derived from one manifest.
type Result struct {
	RegionData overlay.RegionData
	Cultures   []string // Faction keys in first-seen order
	Loc        overlay.Localization
}

type faction struct {
	group      string
	subculture string
}

// Build reads every table of m and joins them into region data:
// region → unit resources → units → military groups → factions.
func Build(m *Manifest, log *slog.Logger) (*Result, error) {
	factions, order, err := loadFactions(m.resolve(m.Factions), m.ExcludeFactionPrefixes)
	if err != nil {
		return nil, tableError(m.Factions, err)
	}
	log.Info("loaded factions", "count", len(order), "file", m.Factions)

	regions, err := loadPairs(m.resolve(m.RegionResources), ',', "Key", "Resource")
	if err != nil {
		return nil, tableError(m.RegionResources, err)
	}
	log.Info("loaded region resources", "regions", regions.len(), "file", m.RegionResources)

	// Rows without a land_unit are not recruitable and do not count.
	resourceUnits, err := loadFolderPairs(m.resolveAll(m.UnitResources), "region_unit_resource_requirement", "unit", "land_unit")
	if err != nil {
		return nil, tableError(strings.Join(m.UnitResources, ","), err)
	}
	log.Info("loaded unit resources", "resources", resourceUnits.len())

	unitGroups, err := loadFolderPairs(m.resolveAll(m.UnitGroups), "unit", "military_group")
	if err != nil {
		return nil, tableError(strings.Join(m.UnitGroups, ","), err)
	}
	log.Info("loaded unit military groups", "units", unitGroups.len())

	groupFactions := newMultiMap()
	for _, key := range order {
		groupFactions.add(factions[key].group, key)
	}

	res := &Result{RegionData: overlay.RegionData{}}
	seen := map[string]bool{}
	for _, region := range regions.keys {
		perFaction := newMultiMap()
		for _, resource := range regions.get(region) {
			for _, unit := range resourceUnits.get(resource) {
				for _, group := range unitGroups.get(unit) {
					for _, f := range groupFactions.get(group) {
						perFaction.add(f, unit)
					}
				}
			}
		}

		entry := make(map[string][]string, perFaction.len())
		for _, f := range perFaction.keys {
			entry[f] = perFaction.get(f)
			if !seen[f] {
				seen[f] = true
				res.Cultures = append(res.Cultures, f)
			}
		}
		res.RegionData[region] = entry
	}
	if res.Cultures == nil {
		res.Cultures = []string{}
	}
	log.Info("built region data", "regions", len(res.RegionData), "cultures", len(res.Cultures))

	loc := m.Localization
	if res.Loc.Regions, err = loadLoc(m.resolve(loc.Regions.File), loc.Regions.Prefix); err != nil {
		return nil, tableError(loc.Regions.File, err)
	}
	if res.Loc.Factions, err = loadLoc(m.resolve(loc.Factions.File), loc.Factions.Prefix); err != nil {
		return nil, tableError(loc.Factions.File, err)
	}
	if res.Loc.Units, err = loadLoc(m.resolve(loc.Units.File), loc.Units.Prefix); err != nil {
		return nil, tableError(loc.Units.File, err)
	}
	log.Info("loaded localization",
		"regions", len(res.Loc.Regions),
		"factions", len(res.Loc.Factions),
		"units", len(res.Loc.Units))

	return res, nil
}

// Write stores the result as the overlay's data files in dir. Either all
// three files are replaced or none.
func (r *Result) Write(dir string) error {
	b, err := emit.NewBatch(dir)
	if err != nil {
		return errors.New(err).Category(errors.CategoryOutput).Context("dir", dir).Build()
	}
	files := []struct {
		name string
		v    any
	}{
		{overlay.RegionDataFile, r.RegionData},
		{overlay.CulturesFile, r.Cultures},
		{overlay.LocFile, r.Loc},
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err == nil {
			err = b.WriteBytes(f.name, append(data, '\n'))
		}
		if err != nil {
			b.Abort()
			return errors.New(err).Category(errors.CategoryOutput).Context("file", f.name).Build()
		}
	}
	if err := b.Commit(); err != nil {
		return errors.New(err).Category(errors.CategoryOutput).Context("dir", dir).Build()
	}
	return nil
}

func tableError(file string, err error) error {
	return errors.New(err).Category(errors.CategoryGameData).Context("table", file).Build()
}

// loadFactions reads key, military_group and subculture. A key seen twice
// keeps its first position and its last values.
func loadFactions(path string, exclude []string) (map[string]faction, []string, error) {
	rows, err := readTable(path, '\t')
	if err != nil {
		return nil, nil, err
	}
	out := map[string]faction{}
	var order []string
rows:
	for _, r := range rows {
		key := r.get("key")
		for _, p := range exclude {
			if strings.HasPrefix(key, p) {
				continue rows
			}
		}
		f := faction{group: r.get("military_group"), subculture: r.get("subculture")}
		if key == "" || f.group == "" || f.subculture == "" {
			continue
		}
		if _, ok := out[key]; !ok {
			order = append(order, key)
		}
		out[key] = f
	}
	return out, order, nil
}

// loadPairs reads a key column and a value column into a multiMap. Rows with
// an empty key, value or required column are skipped.
func loadPairs(path string, delim rune, keyCol, valueCol string, required ...string) (*multiMap, error) {
	rows, err := readTable(path, delim)
	if err != nil {
		return nil, err
	}
	m := newMultiMap()
rows:
	for _, r := range rows {
		for _, col := range required {
			if r.get(col) == "" {
				continue rows
			}
		}
		if k, v := r.get(keyCol), r.get(valueCol); k != "" && v != "" {
			m.add(k, v)
		}
	}
	return m, nil
}

// loadFolderPairs is loadPairs over every TSV file in folders.
func loadFolderPairs(folders []string, keyCol, valueCol string, required ...string) (*multiMap, error) {
	files, err := tsvFiles(folders)
	if err != nil {
		return nil, err
	}
	m := newMultiMap()
	for _, file := range files {
		part, err := loadPairs(file, '\t', keyCol, valueCol, required...)
		if err != nil {
			return nil, err
		}
		for _, k := range part.keys {
			for _, v := range part.get(k) {
				m.add(k, v)
			}
		}
	}
	return m, nil
}

// loadLoc reads a key/text localization table, keeping only keys that carry
// prefix and storing them with the prefix removed. An unset file yields an
// empty table.
func loadLoc(path, prefix string) (map[string]string, error) {
	out := map[string]string{}
	if path == "" {
		return out, nil
	}
	rows, err := readTable(path, '\t')
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		key, text := r.get("key"), r.get("text")
		if key == "" || text == "" || !strings.HasPrefix(key, prefix) {
			continue
		}
		out[strings.TrimPrefix(key, prefix)] = text
	}
	return out, nil
}
