// Package tracing reports store activity to OpenTelemetry.
//
// Each outermost batch becomes a span ending when the batch has delivered
// its notifications. Recomputations and committed writes inside it are span
// events. Synchronizer failures are recorded as errors on the batch span,
// or on a span of their own outside a batch.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/stan/pkg/stan"
)

// Default tracer name.
const defaultTracerName = "stan"

// Config configures a Tracer.
type Config struct {
	// TracerName is the name of the tracer (default: "stan").
	TracerName string

	// Provider supplies the tracer (default: otel.GetTracerProvider()).
	Provider trace.TracerProvider

	// Context is the parent of every span (default: context.Background()).
	Context context.Context
}

// Option configures a Tracer.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(p trace.TracerProvider) Option {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithContext sets the parent context of the spans.
func WithContext(ctx context.Context) Option {
	return func(c *Config) {
		c.Context = ctx
	}
}

// Tracer is a stan.Observer emitting spans. Like the store it observes,
// it must be used from one goroutine.
type Tracer struct {
	tracer trace.Tracer
	ctx    context.Context
	batch  trace.Span
}

var _ stan.Observer = (*Tracer)(nil)

// New creates a Tracer.
func New(opts ...Option) *Tracer {
	config := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	return &Tracer{
		tracer: config.Provider.Tracer(config.TracerName),
		ctx:    config.Context,
	}
}

func (t *Tracer) FieldWritten(field string) {
	if t.batch != nil {
		t.batch.AddEvent("stan.write", trace.WithAttributes(attribute.String("stan.field", field)))
	}
}

func (t *Tracer) WriteSuppressed(string) {}

func (t *Tracer) KeyNotified(string, int) {}

func (t *Tracer) Recomputed(field string, deps int) {
	if t.batch != nil {
		t.batch.AddEvent("stan.recompute", trace.WithAttributes(
			attribute.String("stan.field", field),
			attribute.Int("stan.deps", deps),
		))
	}
}

func (t *Tracer) BatchStarted() {
	_, t.batch = t.tracer.Start(t.ctx, "stan.batch", trace.WithSpanKind(trace.SpanKindInternal))
}

func (t *Tracer) BatchFlushed(keys int) {
	if t.batch == nil {
		return
	}
	t.batch.SetAttributes(attribute.Int("stan.batch.keys", keys))
	t.batch.End()
	t.batch = nil
}

func (t *Tracer) SnapshotFallback(field string, err error) {
	if err != nil {
		t.failure("read", field, err)
	}
}

func (t *Tracer) UpdateFailed(field string, err error) {
	t.failure("write", field, err)
}

func (t *Tracer) failure(op, field string, err error) {
	attrs := trace.WithAttributes(
		attribute.String("stan.field", field),
		attribute.String("stan.sync.op", op),
	)
	span := t.batch
	if span == nil {
		_, span = t.tracer.Start(t.ctx, "stan.sync."+op, trace.WithSpanKind(trace.SpanKindInternal))
		defer span.End()
	}
	span.RecordError(err, attrs)
	span.SetStatus(codes.Error, err.Error())
}
