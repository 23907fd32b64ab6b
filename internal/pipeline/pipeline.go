// Package pipeline runs the extraction stages in order: segment, clean up,
// vectorize, resolve IDs and emit.
package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"provmap/internal/cleanup"
	"provmap/internal/emit"
	"provmap/internal/errors"
	"provmap/internal/logger"
	"provmap/internal/mapping"
	"provmap/internal/metrics"
	"provmap/internal/raster"
	"provmap/internal/segment"
	"provmap/internal/vectorize"
)

// Pipeline converts lookup bitmaps into province outputs.
type Pipeline struct {
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates a pipeline. A nil metrics collects into a private registry.
func New(log *slog.Logger, m *metrics.Metrics) *Pipeline {
	if m == nil {
		m = metrics.New()
	}
	return &Pipeline{log: logger.Module(log, "pipeline"), metrics: m}
}

// Metrics returns the run counters.
func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

// Output is the in-memory result of Build.
type Output struct {
	Canvas  emit.Canvas
	Records []emit.Record
	Report  *Report
}

// Build runs every stage except writing. table may be nil.
func (p *Pipeline) Build(ctx context.Context, img *image.NRGBA, table *mapping.Table, opts Options) (*Output, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.New(err).Category(errors.CategoryConfig).Build()
	}
	b := img.Bounds()
	canvas := emit.Canvas{Width: b.Dx(), Height: b.Dy(), Background: opts.Segment.Background}
	if !opts.Segment.ExcludeBackground {
		canvas.Background.A = 0
	}
	rep := newReport(canvas.Width, canvas.Height)

	start := time.Now()
	work := img
	if opts.Supersample > 1 {
		work = raster.Supersample(img, opts.Supersample)
		p.log.Debug("supersampled", "factor", opts.Supersample, "width", work.Bounds().Dx(), "height", work.Bounds().Dy())
	}
	seg, err := segment.Segment(work, opts.Segment)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryConfig).Build()
	}
	p.metrics.ObserveStage("segment", start)
	p.metrics.RegionsDetected.Add(float64(len(seg.Regions)))
	rep.Detected = len(seg.Regions)
	p.log.Info("segmented", "regions", len(seg.Regions))

	resolver := mapping.NewResolver(table, opts.Segment.Tolerance, opts.Segment.Metric)
	vopts := opts.vectorizeOptions()

	start = time.Now()
	var records []emit.Record
	for _, region := range seg.Regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		match := resolver.Match(region.Color)
		if opts.SkipSea && match.Sea {
			p.drop(rep, metrics.ReasonSea, region, match.ID)
			continue
		}
		if opts.MappedOnly && !match.Mapped {
			p.drop(rep, metrics.ReasonUnmapped, region, match.ID)
			continue
		}

		mask := region.Mask
		if opts.Cleanup.Iterations > 0 {
			co := opts.Cleanup
			label := region.Label
			co.Claimable = func(x, y int) bool {
				l := seg.LabelAt(x, y)
				return l == 0 || l == label
			}
			if mask, err = cleanup.Denoise(mask, co); err != nil {
				return nil, errors.New(err).Category(errors.CategoryConfig).Build()
			}
		}

		shape, err := vectorize.Vectorize(mask, vopts)
		if stderrors.Is(err, vectorize.ErrTooSmall) {
			p.drop(rep, metrics.ReasonSmall, region, match.ID)
			continue
		}
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryInput).
				Context("region", region.Label).
				Build()
		}

		res := resolver.Claim(match)
		if res.Collided {
			rep.Collisions++
			p.metrics.IDCollisions.Inc()
			p.log.Warn("duplicate region id", "id", res.SourceID, "assigned", res.ID, "seed", region.Seed)
		}
		if !res.Mapped {
			rep.Fallback++
			p.metrics.FallbackIDs.Inc()
			p.log.Debug("no mapping entry, using fallback id", "id", res.ID, "color", emit.NewColor(region.Color))
		}
		records = append(records, newRecord(res, region, shape))
	}
	p.metrics.ObserveStage("vectorize", start)
	p.metrics.RegionsEmitted.Add(float64(len(records)))

	rep.finish(records)
	p.log.Info("regions resolved",
		"emitted", rep.Emitted,
		"dropped", rep.DroppedTotal(),
		"fallback", rep.Fallback,
		"collisions", rep.Collisions)

	return &Output{Canvas: canvas, Records: records, Report: rep}, nil
}

func (p *Pipeline) drop(rep *Report, reason string, region *segment.Region, id string) {
	rep.Dropped[reason]++
	p.metrics.Dropped(reason)
	p.log.Debug("region dropped", "reason", reason, "id", id, "area", region.Area, "seed", region.Seed)
}

// Run loads the bitmap at input, builds the outputs and writes them to
// opts.OutDir. Nothing is written when any stage fails.
func (p *Pipeline) Run(ctx context.Context, input string, table *mapping.Table, opts Options) (*Report, error) {
	start := time.Now()
	bm, err := raster.Load(input)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryInput).Context("file", input).Build()
	}
	p.metrics.ObserveStage("load", start)
	p.log.Info("loaded bitmap", "file", input, "format", bm.Format, "width", bm.Width(), "height", bm.Height())

	out, err := p.Build(ctx, bm.Image, table, opts)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	files, err := p.Write(out, opts)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage("emit", start)
	out.Report.Files = files

	if opts.MetricsFile != "" {
		if err := p.metrics.WriteTextfile(opts.MetricsFile); err != nil {
			return nil, errors.New(fmt.Errorf("failed to write metrics: %w", err)).
				Category(errors.CategoryOutput).
				Context("file", opts.MetricsFile).
				Build()
		}
	}
	return out.Report, nil
}

// Write stages every output file and commits them together. It returns the
// paths written.
func (p *Pipeline) Write(out *Output, opts Options) ([]string, error) {
	b, err := emit.NewBatch(opts.OutDir)
	if err != nil {
		return nil, outputError(err, opts.OutDir)
	}

	if err := p.stage(b, out, opts); err != nil {
		b.Abort()
		return nil, outputError(err, opts.OutDir)
	}

	names := b.Files()
	if err := b.Commit(); err != nil {
		return nil, outputError(err, opts.OutDir)
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(opts.OutDir, n)
	}
	p.log.Info("wrote outputs", "dir", opts.OutDir, "files", len(paths))
	return paths, nil
}

func (p *Pipeline) stage(b *emit.Batch, out *Output, opts Options) error {
	if err := b.Write(emit.SVGFile, func(w io.Writer) error {
		return emit.WriteSVG(w, out.Canvas, out.Records)
	}); err != nil {
		return err
	}

	data, err := emit.MarshalRecords(out.Records)
	if err != nil {
		return err
	}
	if err := emit.ValidateJSON(data); err != nil {
		return err
	}
	if err := b.WriteBytes(emit.JSONFile, data); err != nil {
		return err
	}

	if opts.MakeHTML {
		if err := emit.WriteHTML(b, opts.Title); err != nil {
			return err
		}
	}
	if opts.Preview {
		var buf bytes.Buffer
		if err := emit.WritePreview(&buf, out.Canvas, out.Records, emit.DefaultPreviewOptions()); err != nil {
			return err
		}
		if err := b.WriteBytes(emit.PreviewFile, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func outputError(err error, dir string) error {
	return errors.New(err).Category(errors.CategoryOutput).Context("dir", dir).Build()
}

func newRecord(res mapping.Resolution, region *segment.Region, shape *vectorize.Shape) emit.Record {
	bb := shape.Bounds
	return emit.Record{
		ID:       res.ID,
		Name:     res.Name,
		SourceID: res.SourceID,
		Mapped:   res.Mapped,
		Color:    emit.NewColor(region.Color),
		AreaPx:   shape.Area,
		BBox: emit.BBox{
			X0: round2(bb.X),
			Y0: round2(bb.Y),
			X1: round2(bb.X + bb.Width),
			Y1: round2(bb.Y + bb.Height),
		},
		Centroid:  emit.Point{X: round2(shape.Centroid.X), Y: round2(shape.Centroid.Y)},
		Rings:     shape.Rings,
		Holes:     shape.Holes,
		PathData:  shape.PathData,
		Transform: shape.Transform,
		Polygons:  shape.Polygons,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
