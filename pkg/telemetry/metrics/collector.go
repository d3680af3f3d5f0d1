// Package metrics exposes warden's Prometheus instrumentation. All metrics
// live under a single collector so registration happens once at startup and
// recording stays allocation-free on the hot path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"archguard-hq/warden/pkg/config"
)

// Collector owns every Prometheus metric the service records.
//
// Metrics:
//   - warden_guardrails_refresh_total: snapshot rebuilds by status
//   - warden_guardrails_refresh_duration_seconds: rebuild duration histogram
//   - warden_guardrails_validations_total: diff validations by status
//   - warden_guardrails_validation_duration_seconds: validation duration histogram
//   - warden_guardrails_violations_total: violations found, by type
//   - warden_guardrails_snapshot_age_seconds: age of the live snapshot
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	refreshTotal       *prometheus.CounterVec
	refreshDuration    prometheus.Histogram
	validationsTotal   *prometheus.CounterVec
	validationDuration prometheus.Histogram
	violationsTotal    *prometheus.CounterVec
	snapshotAge        prometheus.GaugeFunc
}

// NewCollector creates a metrics collector and registers all metrics with
// the given registry. If registry is nil a fresh one is used. snapshotBuilt
// reports the build time of the live snapshot for the age gauge; it may be
// nil when no snapshot gauge is wanted.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry, snapshotBuilt func() time.Time) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "warden"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "guardrails"
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 8}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "refresh_total",
				Help:      "Total number of snapshot rebuilds",
			},
			[]string{"status"},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "refresh_duration_seconds",
				Help:      "Duration of snapshot rebuilds in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),
		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validations_total",
				Help:      "Total number of diff validations",
			},
			[]string{"status"},
		),
		validationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validation_duration_seconds",
				Help:      "Duration of diff validations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),
		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "violations_total",
				Help:      "Total guardrail violations found, by violation type",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(
		c.refreshTotal,
		c.refreshDuration,
		c.validationsTotal,
		c.validationDuration,
		c.violationsTotal,
	)

	if snapshotBuilt != nil {
		c.snapshotAge = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "snapshot_age_seconds",
				Help:      "Age of the live policy snapshot in seconds",
			},
			func() float64 {
				built := snapshotBuilt()
				if built.IsZero() {
					return 0
				}
				return time.Since(built).Seconds()
			},
		)
		registry.MustRegister(c.snapshotAge)
	}

	return c
}

// RecordRefresh records one snapshot rebuild attempt.
// Status is "ok", "error", or "timeout".
func (c *Collector) RecordRefresh(status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.refreshTotal.WithLabelValues(status).Inc()
	c.refreshDuration.Observe(duration.Seconds())
}

// RecordValidation records one diff validation.
// Status is "ok", "violations", or "timeout".
func (c *Collector) RecordValidation(status string, duration time.Duration, violationTypes []string) {
	if !c.config.Enabled {
		return
	}
	c.validationsTotal.WithLabelValues(status).Inc()
	c.validationDuration.Observe(duration.Seconds())
	for _, t := range violationTypes {
		c.violationsTotal.WithLabelValues(t).Inc()
	}
}

// Registry returns the Prometheus registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
