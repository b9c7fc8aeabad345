// Package metrics exports store activity as Prometheus metrics.
//
//	collector := metrics.New(metrics.WithNamespace("app"))
//	store, _ := stan.New(fields, stan.WithObserver(collector))
//
// One Collector can observe any number of stores.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/stan/pkg/stan"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "stan").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flushed keys per batch.
	// Default: 1, 2, 4 ... 256
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "stan",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector is a stan.Observer recording Prometheus metrics.
type Collector struct {
	writes        *prometheus.CounterVec
	suppressed    *prometheus.CounterVec
	notifications prometheus.Counter
	recomputes    *prometheus.CounterVec
	batches       prometheus.Counter
	flushedKeys   prometheus.Histogram
	syncFailures  *prometheus.CounterVec
}

var _ stan.Observer = (*Collector)(nil)

// New creates a Collector and registers its metrics. Registering two
// collectors with the same namespace on one registry panics, as promauto
// does.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of committed field writes",
			ConstLabels: config.ConstLabels,
		}, []string{"field"}),

		suppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_suppressed_total",
			Help:        "Total number of writes dropped because the value was unchanged",
			ConstLabels: config.ConstLabels,
		}, []string{"field"}),

		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of listener invocations",
			ConstLabels: config.ConstLabels,
		}),

		recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputations_total",
			Help:        "Total number of computed field evaluations",
			ConstLabels: config.ConstLabels,
		}, []string{"field"}),

		batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batches_total",
			Help:        "Total number of outermost batches",
			ConstLabels: config.ConstLabels,
		}),

		flushedKeys: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batch_flushed_keys",
			Help:        "Subscription keys delivered per batch",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		syncFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sync_failures_total",
			Help:        "Total number of failed synchronizer reads and writes",
			ConstLabels: config.ConstLabels,
		}, []string{"field", "op"}),
	}
}

func (c *Collector) FieldWritten(field string) {
	c.writes.WithLabelValues(field).Inc()
}

func (c *Collector) WriteSuppressed(field string) {
	c.suppressed.WithLabelValues(field).Inc()
}

func (c *Collector) KeyNotified(_ string, listeners int) {
	c.notifications.Add(float64(listeners))
}

func (c *Collector) Recomputed(field string, _ int) {
	c.recomputes.WithLabelValues(field).Inc()
}

func (c *Collector) BatchStarted() {
	c.batches.Inc()
}

func (c *Collector) BatchFlushed(keys int) {
	c.flushedKeys.Observe(float64(keys))
}

// SnapshotFallback counts failed reads; an empty source is not a failure.
func (c *Collector) SnapshotFallback(field string, err error) {
	if err != nil {
		c.syncFailures.WithLabelValues(field, "read").Inc()
	}
}

func (c *Collector) UpdateFailed(field string, _ error) {
	c.syncFailures.WithLabelValues(field, "write").Inc()
}
