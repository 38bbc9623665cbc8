// Package metrics exposes Prometheus collectors for registry builds and
// command dispatch.
package metrics

import (
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds configuration for the Collector.
type Config struct {
	Namespace      string   `yaml:"namespace" json:"namespace"`
	Subsystem      string   `yaml:"subsystem" json:"subsystem"`
	MetricsPath    string   `yaml:"metricsPath" json:"metricsPath"`
	EnabledMetrics []string `yaml:"enabledMetrics" json:"enabledMetrics"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:      "redishandles",
		MetricsPath:    "/metrics",
		EnabledMetrics: []string{"registry", "dispatch"},
	}
}

// Collector wraps the Prometheus metrics of this module in its own registry.
// Metric fields are nil when their group is disabled; the Record methods
// tolerate that.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	BuildDuration       prometheus.Histogram
	Handles             prometheus.Gauge
	DuplicateSignatures prometheus.Counter
	BuildFailures       *prometheus.CounterVec
	Dispatches          *prometheus.CounterVec
	DispatchDuration    *prometheus.HistogramVec
}

// New creates a Collector with the default configuration.
func New() *Collector {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Collector with the given configuration.
func NewWithConfig(cfg Config) *Collector {
	reg := prometheus.NewRegistry()
	ns := cfg.Namespace
	sub := cfg.Subsystem

	c := &Collector{config: cfg, registry: reg}

	if slices.Contains(cfg.EnabledMetrics, "registry") {
		c.BuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "registry_build_duration_seconds",
			Help:      "Time spent building the signature registry",
			Buckets:   prometheus.DefBuckets,
		})
		c.Handles = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "registry_handles",
			Help:      "Number of signatures in the registry",
		})
		c.DuplicateSignatures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "registry_duplicate_signatures_total",
			Help:      "Signatures overwritten by a later method with the same rendering",
		})
		c.BuildFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "registry_build_failures_total",
			Help:      "Registry builds aborted, by failure kind",
		}, []string{"kind"})

		reg.MustRegister(c.BuildDuration, c.Handles, c.DuplicateSignatures, c.BuildFailures)
	}

	if slices.Contains(cfg.EnabledMetrics, "dispatch") {
		c.Dispatches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "dispatch_total",
			Help:      "Commands dispatched by signature",
		}, []string{"method", "status"})
		c.DispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of dispatched commands in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"})

		reg.MustRegister(c.Dispatches, c.DispatchDuration)
	}

	return c
}

// MetricsPath returns the configured metrics endpoint path.
func (c *Collector) MetricsPath() string { return c.config.MetricsPath }

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler returns an HTTP handler that serves the collected metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordBuild records a successful registry build.
func (c *Collector) RecordBuild(handles, duplicates int, duration time.Duration) {
	if c == nil || c.BuildDuration == nil {
		return
	}
	c.BuildDuration.Observe(duration.Seconds())
	c.Handles.Set(float64(handles))
	c.DuplicateSignatures.Add(float64(duplicates))
}

// RecordBuildFailure counts an aborted build.
func (c *Collector) RecordBuildFailure(kind string) {
	if c == nil || c.BuildFailures == nil {
		return
	}
	c.BuildFailures.WithLabelValues(kind).Inc()
}

// RecordDispatch records one dispatched command.
func (c *Collector) RecordDispatch(method, status string, duration time.Duration) {
	if c == nil || c.Dispatches == nil {
		return
	}
	c.Dispatches.WithLabelValues(method, status).Inc()
	c.DispatchDuration.WithLabelValues(method).Observe(duration.Seconds())
}
