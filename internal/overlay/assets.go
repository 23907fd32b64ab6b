// Package overlay ships the browser hover overlay and evaluates its tooltip
// and culture filter logic headlessly.
package overlay

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

// File names shared by the map builder, the game data builder and the
// overlay script.
const (
	ScriptFile     = "overlay.js"
	StyleFile      = "overlay.css"
	RegionDataFile = "region_data.json"
	LocFile        = "loc_data.json"
	CulturesFile   = "cultures_list.json"
	ProvincesFile  = "provinces.json"
)

//go:embed assets/overlay.js assets/overlay.css assets/index.html.tmpl
var assets embed.FS

var indexTemplate = template.Must(template.ParseFS(assets, "assets/index.html.tmpl"))

// Script returns the overlay JavaScript source.
func Script() []byte {
	return mustRead("assets/overlay.js")
}

// Stylesheet returns the overlay CSS.
func Stylesheet() []byte {
	return mustRead("assets/overlay.css")
}

func mustRead(name string) []byte {
	data, err := assets.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("overlay: missing embedded asset %s", name))
	}
	return data
}

// Page holds the file references of the HTML scaffold.
type Page struct {
	Title      string
	SVG        string
	RegionData string
	Loc        string
	Cultures   string
	Script     string
	Stylesheet string
}

// DefaultPage references the standard output file names.
func DefaultPage(title, svgFile string) Page {
	return Page{
		Title:      title,
		SVG:        svgFile,
		RegionData: RegionDataFile,
		Loc:        LocFile,
		Cultures:   CulturesFile,
		Script:     ScriptFile,
		Stylesheet: StyleFile,
	}
}

// RenderIndex writes the index.html scaffold.
func RenderIndex(w io.Writer, p Page) error {
	if err := indexTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("failed to render index.html: %w", err)
	}
	return nil
}
