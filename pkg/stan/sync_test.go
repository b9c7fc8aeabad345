package stan

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func settle(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Settle(ctx); err != nil {
		t.Fatalf("Settle() failed: %v", err)
	}
}

func TestSynchronizedFoundSnapshot(t *testing.T) {
	src := &fakeSync{initial: "john", snapshot: Found("jane")}
	s := mustNew(t, Fields{Synchronized("user", src)})

	if got := Get[string](s, "user"); got != "jane" {
		t.Errorf("user = %q, want jane", got)
	}
	if !slices.Equal(src.keys, []string{"user"}) {
		t.Errorf("snapshot keys = %v", src.keys)
	}
	if len(src.updates) != 0 {
		t.Errorf("a found snapshot must not be pushed back, updates = %v", src.updates)
	}
}

func TestSynchronizedFallback(t *testing.T) {
	tests := []struct {
		name    string
		src     *fakeSync
		wantErr error
	}{
		{"missing", &fakeSync{initial: "john", snapshot: Missing()}, nil},
		{"found nil", &fakeSync{initial: "john", snapshot: Found(nil)}, nil},
		{"read error", &fakeSync{initial: "john", err: errBoom}, errBoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := newEventLog()
			s := mustNew(t, Fields{Synchronized("user", tt.src)}, WithObserver(log))

			if got := Get[string](s, "user"); got != "john" {
				t.Errorf("user = %q, want the initial value", got)
			}
			if !slices.Equal(tt.src.updates, []any{"john"}) {
				t.Errorf("updates = %v, want [john]", tt.src.updates)
			}
			err, ok := log.fallbacks["user"]
			if !ok {
				t.Fatal("fallback not observed")
			}
			if err != tt.wantErr {
				t.Errorf("fallback err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSynchronizedWritesArePushed(t *testing.T) {
	src := &fakeSync{initial: 0, snapshot: Found(3)}
	s := mustNew(t, Fields{Synchronized("n", src)})
	setN := mustAction(t, s, "n")

	setN(4)
	setN(4)
	setN(Update(func(n int) int { return n + 1 }))

	if !slices.Equal(src.updates, []any{4, 5}) {
		t.Errorf("updates = %v, want [4 5]", src.updates)
	}
}

func TestSynchronizedUpdateFailure(t *testing.T) {
	src := &fakeSync{
		initial:  0,
		snapshot: Found(1),
		updateFn: func(any) error { return errBoom },
	}
	log := newEventLog()
	s := mustNew(t, Fields{Synchronized("n", src)}, WithObserver(log))

	mustAction(t, s, "n")(2)

	if got := Get[int](s, "n"); got != 2 {
		t.Errorf("n = %d, want the write kept", got)
	}
	if !errors.Is(log.failures["n"], errBoom) {
		t.Errorf("update failure = %v, want errBoom", log.failures["n"])
	}
}

func TestDeferredSnapshotFound(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSync{initial: "john", snapshot: deferredValue(release, "jane", nil)}
	s := mustNew(t, Fields{Synchronized("user", src)})

	if got := Get[string](s, "user"); got != "john" {
		t.Fatalf("user before the read = %q, want john", got)
	}
	var rec recorder
	s.Subscribe(rec.listen, "user")

	close(release)
	settle(t, s)

	if got := Get[string](s, "user"); got != "jane" {
		t.Errorf("user = %q, want jane", got)
	}
	if rec.calls != 1 || rec.last() != "jane" {
		t.Errorf("calls = %d payload = %v", rec.calls, rec.last())
	}
}

func TestDeferredSnapshotEmpty(t *testing.T) {
	tests := []struct {
		name    string
		v       any
		err     error
		wantErr error
	}{
		{"nil value", nil, nil, nil},
		{"no snapshot", nil, ErrNoSnapshot, nil},
		{"read error", nil, errBoom, errBoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			src := &fakeSync{initial: "john", snapshot: deferredValue(release, tt.v, tt.err)}
			log := newEventLog()
			s := mustNew(t, Fields{Synchronized("user", src)}, WithObserver(log))

			close(release)
			settle(t, s)

			if got := Get[string](s, "user"); got != "john" {
				t.Errorf("user = %q", got)
			}
			if !slices.Equal(src.updates, []any{"john"}) {
				t.Errorf("updates = %v, want [john]", src.updates)
			}
			if err := log.fallbacks["user"]; err != tt.wantErr {
				t.Errorf("fallback err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyPendingDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSync{initial: 0, snapshot: deferredValue(release, 7, nil)}
	s := mustNew(t, Fields{Synchronized("n", src)})

	if n := s.ApplyPending(); n != 0 {
		t.Errorf("ApplyPending() = %d before the read finished", n)
	}
	close(release)
	settle(t, s)
	if got := Get[int](s, "n"); got != 7 {
		t.Errorf("n = %d, want 7", got)
	}
}

func TestSettleHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	src := &fakeSync{initial: 0, snapshot: deferredValue(release, 1, nil)}
	s := mustNew(t, Fields{Synchronized("n", src)})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Settle(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Settle() = %v, want DeadlineExceeded", err)
	}
}

func TestCloseDropsLateSnapshot(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSync{initial: "john", snapshot: deferredValue(release, "jane", nil)}
	s := mustNew(t, Fields{Synchronized("user", src)})

	s.Close()
	settle(t, s)
	close(release)

	if got := Get[string](s, "user"); got != "john" {
		t.Errorf("user = %q, want john", got)
	}
	if len(src.updates) != 0 {
		t.Errorf("updates after Close = %v", src.updates)
	}
}

func TestSubscriberInboundWrites(t *testing.T) {
	src := subFake{&fakeSync{initial: 0, snapshot: Found(1)}}
	s := mustNew(t, Fields{Synchronized("n", src)})
	var rec recorder
	s.Subscribe(rec.listen, "n")

	if src.set == nil {
		t.Fatal("store did not subscribe to the synchronizer")
	}
	src.set(5)
	src.set(5)

	if got := Get[int](s, "n"); got != 5 {
		t.Errorf("n = %d, want 5", got)
	}
	if rec.calls != 1 {
		t.Errorf("calls = %d, want 1", rec.calls)
	}

	s.Close()
	s.Close()
	if src.unsubscribed != 1 {
		t.Errorf("unsubscribed = %d, want 1", src.unsubscribed)
	}
}

func TestDispatcherRunsDeferredResults(t *testing.T) {
	queue := make(chan func(), 4)
	release := make(chan struct{})
	src := subFake{&fakeSync{initial: 0, snapshot: deferredValue(release, 9, nil)}}
	s := mustNew(t, Fields{Synchronized("n", src)}, WithDispatcher(func(fn func()) {
		queue <- fn
	}))

	close(release)
	select {
	case fn := <-queue:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("deferred result never dispatched")
	}
	if got := Get[int](s, "n"); got != 9 {
		t.Errorf("n = %d, want 9", got)
	}
	if s.ApplyPending() != 0 {
		t.Error("dispatched results must not reach the inbox")
	}

	src.set(10)
	if got := Get[int](s, "n"); got != 9 {
		t.Errorf("inbound write applied outside the dispatcher")
	}
	(<-queue)()
	if got := Get[int](s, "n"); got != 10 {
		t.Errorf("n = %d, want 10", got)
	}
}

func TestSnapshotResolve(t *testing.T) {
	ctx := context.Background()

	if v, err := Found(1).Resolve(ctx); err != nil || v != 1 {
		t.Errorf("Found.Resolve = %v, %v", v, err)
	}
	if _, err := Missing().Resolve(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Missing.Resolve err = %v", err)
	}
	d := Deferred(func(context.Context) (any, error) { return "x", nil })
	if !d.IsDeferred() {
		t.Error("Deferred snapshot not deferred")
	}
	if _, ok := d.Value(); ok {
		t.Error("Deferred snapshot has no immediate value")
	}
	if v, err := d.Resolve(ctx); err != nil || v != "x" {
		t.Errorf("Deferred.Resolve = %v, %v", v, err)
	}
	empty := Deferred(func(context.Context) (any, error) { return nil, nil })
	if _, err := empty.Resolve(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("empty Deferred.Resolve err = %v", err)
	}
	if Deferred(nil).IsDeferred() {
		t.Error("Deferred(nil) should be Missing")
	}
}
