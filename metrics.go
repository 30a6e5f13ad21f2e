package charshadow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons reported on the skipped frames counter.
const (
	SkipNoTarget = "no_target"
	SkipCulled   = "culled"
)

// MetricsOption applies a configuration option to Metrics.
type MetricsOption func(*Metrics)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) MetricsOption {
	return func(m *Metrics) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) MetricsOption {
	return func(m *Metrics) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithMetricsEnabled enables or disables metrics collection.
func WithMetricsEnabled(enabled bool) MetricsOption {
	return func(m *Metrics) {
		m.enabled = enabled
	}
}

// WithPrometheusRegistry sets a custom Prometheus registry.
func WithPrometheusRegistry(registry prometheus.Registerer) MetricsOption {
	return func(m *Metrics) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Metrics records per-frame shadow selection figures. A nil *Metrics or one
// built with metrics disabled ignores every call.
type Metrics struct {
	namespace string
	subsystem string
	enabled   bool
	registry  prometheus.Registerer

	frames           prometheus.Counter
	framesSkipped    *prometheus.CounterVec
	lightRefreshes   prometheus.Counter
	catalogLights    prometheus.Gauge
	qualifyingLights prometheus.Gauge
	activeSlots      prometheus.Gauge
	cascadeScale     prometheus.Gauge
	atlasResolution  *prometheus.GaugeVec
	slicesDrawn      *prometheus.CounterVec
	updateDuration   prometheus.Histogram
}

func NewMetrics(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		namespace: "charshadow",
		enabled:   true,
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.enabled {
		m.init()
	}
	return m
}

func (m *Metrics) init() {
	auto := promauto.With(m.registry)

	m.frames = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_total",
		Help:      "Frames that ran shadow selection",
	})
	m.framesSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_skipped_total",
		Help:      "Frames where shadow maintenance was skipped, by reason",
	}, []string{"reason"})
	m.lightRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "light_refreshes_total",
		Help:      "Scene light catalog refreshes",
	})
	m.catalogLights = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_lights",
		Help:      "Shadow candidate lights in the catalog",
	})
	m.qualifyingLights = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranked_lights",
		Help:      "Spot lights ranked for the target in the last frame",
	})
	m.activeSlots = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_slots",
		Help:      "Shadow camera slots bound in the last frame",
	})
	m.cascadeScale = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cascade_scale",
		Help:      "Resolution multiplier chosen from target distance",
	})
	m.atlasResolution = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "atlas_resolution_texels",
		Help:      "Per-slice atlas resolution by atlas kind",
	}, []string{"kind"})
	m.slicesDrawn = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "slices_drawn_total",
		Help:      "Atlas slices handed to the renderer, by atlas kind",
	}, []string{"kind"})
	m.updateDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "update_duration_seconds",
		Help:      "CPU time spent in one shadow update",
		Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
	})
}

func (m *Metrics) on() bool {
	return m != nil && m.enabled
}

func (m *Metrics) RecordRefresh(candidates int) {
	if !m.on() {
		return
	}
	m.lightRefreshes.Inc()
	m.catalogLights.Set(float64(candidates))
}

func (m *Metrics) RecordSkip(reason string) {
	if !m.on() {
		return
	}
	m.framesSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordFrame(ranked, activeSlots int, scale float32, took time.Duration) {
	if !m.on() {
		return
	}
	m.frames.Inc()
	m.qualifyingLights.Set(float64(ranked))
	m.activeSlots.Set(float64(activeSlots))
	m.cascadeScale.Set(float64(scale))
	m.updateDuration.Observe(took.Seconds())
}

func (m *Metrics) RecordAtlas(kind string, resolution, slices int) {
	if !m.on() {
		return
	}
	m.atlasResolution.WithLabelValues(kind).Set(float64(resolution))
	m.slicesDrawn.WithLabelValues(kind).Add(float64(slices))
}
