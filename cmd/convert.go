package cmd

import (
	"github.com/spf13/cobra"

	"provmap/internal/config"
	"provmap/internal/errors"
	"provmap/internal/logger"
	"provmap/internal/mapping"
	"provmap/internal/metrics"
	"provmap/internal/pipeline"
)

func convertCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <input-bitmap>",
		Short: "Convert a lookup bitmap into provinces.svg and provinces.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convert(cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.String("outdir", "docs", "Output directory")
	f.String("bg", "0,0,0,0", "Background color R,G,B,A excluded from regions")
	f.Float64("simplify", 0.3, "Simplification tolerance in percent of ring perimeter (0 keeps every vertex)")
	f.Int("tolerance", 1, "Color tolerance for region growing and mapping lookup")
	f.Int("min-area", 80, "Drop regions smaller than this many pixels")
	f.String("mapping", "", "CSV mapping table (color, id[, name, is_sea])")
	f.Bool("make-html", false, "Also write index.html with the hover overlay")
	f.String("title", "Provinces", "Page title for --make-html")
	f.String("metric", "max", "Color distance: max, euclidean or lab")
	f.Int("connectivity", 8, "Pixel neighbourhood: 4 or 8")
	f.Int("supersample", 1, "Upscale factor before tracing (1 = off)")
	f.Int("denoise", 0, "Morphological open/close passes per region (0 = off)")
	f.Int("denoise-kernel", 3, "Denoise kernel diameter in pixels (odd)")
	f.String("tracer", "crack", "Outline tracer: crack (polygons) or potrace (curves)")
	f.Bool("skip-sea", false, "Drop regions whose mapping row has is_sea=true")
	f.Bool("mapped-only", false, "Drop regions without a mapping entry")
	f.Bool("preview", false, "Also write provinces_preview.png")
	f.String("metrics-file", "", "Write run metrics to this Prometheus textfile")
	mustBind(config.BindFlags(a.v, "convert", f))

	return cmd
}

func (a *app) convert(cmd *cobra.Command, input string) error {
	s := a.settings.Convert
	opts, err := s.PipelineOptions()
	if err != nil {
		return errors.New(err).Category(errors.CategoryConfig).Build()
	}

	var table *mapping.Table
	if s.Mapping != "" {
		if table, err = mapping.Load(s.Mapping); err != nil {
			return err
		}
		a.log.Info("loaded mapping table", "file", s.Mapping, "entries", table.Len())
	}

	p := pipeline.New(logger.Module(a.log, "convert"), metrics.New())
	rep, err := p.Run(cmd.Context(), input, table, opts)
	if err != nil {
		return err
	}
	a.log.Info("conversion finished", "summary", rep.String(), "outdir", opts.OutDir)
	return nil
}
