package stan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

// recorder counts listener calls and keeps their payloads.
type recorder struct {
	calls    int
	payloads []any
}

func (r *recorder) listen(v any) {
	r.calls++
	r.payloads = append(r.payloads, v)
}

func (r *recorder) last() any {
	if len(r.payloads) == 0 {
		return nil
	}
	return r.payloads[len(r.payloads)-1]
}

// fakeSync is a scriptable Synchronizer.
type fakeSync struct {
	initial  any
	snapshot Snapshot
	err      error
	updateFn func(v any) error

	updates []any
	keys    []string

	// Used through subFake.
	set          func(any)
	unsubscribed int
}

func (f *fakeSync) InitialValue() any { return f.initial }

func (f *fakeSync) GetSnapshot(key string) (Snapshot, error) {
	f.keys = append(f.keys, key)
	return f.snapshot, f.err
}

func (f *fakeSync) Update(v any, key string) error {
	f.updates = append(f.updates, v)
	if f.updateFn != nil {
		return f.updateFn(v)
	}
	return nil
}

// subFake adds Subscriber to fakeSync.
type subFake struct {
	*fakeSync
}

func (f subFake) Subscribe(set func(any), key string) func() {
	f.set = set
	return func() { f.unsubscribed++ }
}

// deferredValue returns a Deferred snapshot that yields v once release is
// closed.
func deferredValue(release <-chan struct{}, v any, err error) Snapshot {
	return Deferred(func(ctx context.Context) (any, error) {
		select {
		case <-release:
			return v, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustNew(t *testing.T, fields Fields, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := New(fields, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func mustAction(t *testing.T, s *Store, field string) Action {
	t.Helper()
	act, ok := s.Action(field)
	if !ok {
		t.Fatalf("no action for %q", field)
	}
	return act
}

// recoverError runs fn and returns the error it panicked with.
func recoverError(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic")
		}
		e, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v is not an error", r)
		}
		err = e
	}()
	fn()
	return nil
}

var errBoom = errors.New("boom")
