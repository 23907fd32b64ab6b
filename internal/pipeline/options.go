package pipeline

import (
	"fmt"

	"provmap/internal/cleanup"
	"provmap/internal/segment"
	"provmap/internal/vectorize"
)

// Options configures one conversion run.
type Options struct {
	OutDir      string
	Segment     segment.Options
	Cleanup     cleanup.Options
	Vectorize   vectorize.Options // MinArea in source pixels; Scale is set from Supersample
	Supersample int               // Upscale factor applied before segmentation (1 = off)

	SkipSea    bool // Drop regions whose mapping row is flagged as sea
	MappedOnly bool // Drop regions without a mapping entry

	MakeHTML    bool
	Title       string
	Preview     bool
	MetricsFile string // Prometheus textfile written after a successful run
}

// DefaultOptions mirrors the CLI defaults.
func DefaultOptions() Options {
	c := cleanup.DefaultOptions()
	c.Iterations = 0
	return Options{
		OutDir:      "docs",
		Segment:     segment.DefaultOptions(),
		Cleanup:     c,
		Vectorize:   vectorize.DefaultOptions(),
		Supersample: 1,
		Title:       "Provinces",
	}
}

// Validate checks the options of every stage.
func (o Options) Validate() error {
	if o.Supersample < 1 || o.Supersample > 8 {
		return fmt.Errorf("invalid supersample factor %d (want 1-8)", o.Supersample)
	}
	if o.Segment.Tolerance < 0 {
		return fmt.Errorf("invalid tolerance %d", o.Segment.Tolerance)
	}
	if _, err := segment.ParseConnectivity(int(o.Segment.Connectivity)); err != nil {
		return err
	}
	if err := o.Cleanup.Validate(); err != nil {
		return err
	}
	return o.Vectorize.Validate()
}

// vectorizeOptions scales area and coordinates for the supersampled raster.
func (o Options) vectorizeOptions() vectorize.Options {
	v := o.Vectorize
	f := o.Supersample
	if f < 1 {
		f = 1
	}
	v.MinArea *= f * f
	v.Scale = float64(f)
	v.Connectivity = o.Segment.Connectivity
	return v
}
