package metrics

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/stan/pkg/stan"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

type failingSync struct{}

func (failingSync) InitialValue() any                         { return "x" }
func (failingSync) GetSnapshot(string) (stan.Snapshot, error) { return stan.Snapshot{}, errors.New("read") }
func (failingSync) Update(any, string) error                  { return errors.New("write") }

func TestCollectorRecordsStoreActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithNamespace("test"))

	s, err := stan.New(stan.Fields{
		stan.Literal("a", 0),
		stan.Literal("b", 0),
		stan.Computed("sum", func(s stan.State) any { return stan.Value[int](s, "a") + stan.Value[int](s, "b") }),
	}, stan.WithObserver(c), stan.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()
	s.Subscribe(func(any) {}, "sum")

	s.BatchUpdates(func() {
		_ = s.Set("a", 1)
		_ = s.Set("b", 2)
		_ = s.Set("b", 2)
	})

	if got := counterValue(t, c.writes.WithLabelValues("a")); got != 1 {
		t.Errorf("writes_total{a} = %v, want 1", got)
	}
	if got := counterValue(t, c.writes.WithLabelValues("sum")); got != 1 {
		t.Errorf("writes_total{sum} = %v, want 1", got)
	}
	if got := counterValue(t, c.suppressed.WithLabelValues("b")); got != 1 {
		t.Errorf("writes_suppressed_total{b} = %v, want 1", got)
	}
	// One evaluation while building the store, one for the batch.
	if got := counterValue(t, c.recomputes.WithLabelValues("sum")); got != 2 {
		t.Errorf("recomputations_total{sum} = %v, want 2", got)
	}
	if got := counterValue(t, c.batches); got != 1 {
		t.Errorf("batches_total = %v, want 1", got)
	}
	if got := histogramCount(t, c.flushedKeys); got != 1 {
		t.Errorf("batch_flushed_keys count = %v, want 1", got)
	}
	// The derivation of sum and the subscribed listener.
	if got := counterValue(t, c.notifications); got != 2 {
		t.Errorf("notifications_total = %v, want 2", got)
	}
}

func TestCollectorRecordsSyncFailures(t *testing.T) {
	c := New(WithRegistry(prometheus.NewRegistry()))

	s, err := stan.New(stan.Fields{stan.Synchronized("user", failingSync{})},
		stan.WithObserver(c), stan.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	if got := counterValue(t, c.syncFailures.WithLabelValues("user", "read")); got != 1 {
		t.Errorf("sync_failures_total{read} = %v, want 1", got)
	}
	// The fallback pushed the initial value, which failed too.
	if got := counterValue(t, c.syncFailures.WithLabelValues("user", "write")); got != 1 {
		t.Errorf("sync_failures_total{write} = %v, want 1", got)
	}
}

func TestNewUsesDefaults(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg))
	c.BatchStarted()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "stan_batches_total" {
			found = true
		}
	}
	if !found {
		t.Error("stan_batches_total not registered under the default namespace")
	}
}
