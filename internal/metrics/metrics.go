// Package metrics collects per-run pipeline counters in a Prometheus registry.
// A run can dump them to a node_exporter textfile for build dashboards.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "provmap"

// Drop reasons used with RegionsDropped.
const (
	ReasonSmall    = "below_min_area"
	ReasonSea      = "sea"
	ReasonUnmapped = "unmapped"
)

// Metrics holds the collectors of one run.
type Metrics struct {
	registry *prometheus.Registry

	RegionsDetected prometheus.Counter
	RegionsEmitted  prometheus.Counter
	RegionsDropped  *prometheus.CounterVec
	FallbackIDs     prometheus.Counter
	IDCollisions    prometheus.Counter
	StageDuration   *prometheus.HistogramVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RegionsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_detected_total",
			Help:      "Connected color regions found by the segmenter.",
		}),
		RegionsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_emitted_total",
			Help:      "Regions written to the SVG and JSON outputs.",
		}),
		RegionsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_dropped_total",
			Help:      "Regions discarded before emission, by reason.",
		}, []string{"reason"}),
		FallbackIDs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_ids_total",
			Help:      "Regions without a mapping entry that received a synthesized ID.",
		}),
		IDCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "id_collisions_total",
			Help:      "Regions whose ID needed a disambiguating suffix.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.RegionsDetected,
		m.RegionsEmitted,
		m.RegionsDropped,
		m.FallbackIDs,
		m.IDCollisions,
		m.StageDuration,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records the time elapsed since start for a stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Dropped increments the drop counter for reason.
func (m *Metrics) Dropped(reason string) {
	m.RegionsDropped.WithLabelValues(reason).Inc()
}

// WriteTextfile writes all metrics in the Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
