package stan

import (
	"context"
	"errors"
	"sync"

	serrors "github.com/vango-dev/stan/internal/errors"
)

// bindSynchronizer seeds a synchronized field and wires it to its source in
// both directions.
func (s *Store) bindSynchronizer(f *field) {
	name := f.name()
	src := f.decl.sync

	snap, err := src.GetSnapshot(name)
	switch {
	case err != nil:
		s.fallback(f, err)
	case snap.state == snapshotFound:
		s.state.values[name] = snap.value
	case snap.state == snapshotDeferred:
		s.state.values[name] = src.InitialValue()
		s.await(f, snap.read)
	default:
		s.fallback(f, nil)
	}

	s.registry.add([]string{name}, func(v any) {
		s.push(f, v)
	})

	if sub, ok := src.(Subscriber); ok {
		set := s.actionFor(name)
		if s.dispatcher != nil {
			direct := set
			set = func(v any) {
				s.dispatcher(func() { direct(v) })
			}
		}
		if unsubscribe := sub.Subscribe(set, name); unsubscribe != nil {
			s.closers = append(s.closers, unsubscribe)
		}
	}
}

// fallback adopts the initial value and pushes it to the source so the
// source holds a known value. err is nil when the source was just empty.
func (s *Store) fallback(f *field, err error) {
	name := f.name()
	initial := f.decl.sync.InitialValue()
	s.state.values[name] = initial
	s.reportFallback(f, err)
	s.push(f, initial)
}

func (s *Store) reportFallback(f *field, err error) {
	name := f.name()
	if err != nil {
		s.logger.Warn("stan: snapshot read failed, using initial value",
			"field", name,
			"error", serrors.New(serrors.CodeSynchronizerRead).WithField(name).Wrap(err))
	} else {
		s.logger.Debug("stan: no snapshot, initialising source", "field", name)
	}
	for _, o := range s.observers {
		o.SnapshotFallback(name, err)
	}
}

// push forwards a committed value to the field's synchronizer.
func (s *Store) push(f *field, v any) {
	name := f.name()
	if err := f.decl.sync.Update(v, name); err != nil {
		s.logger.Warn("stan: synchronizer update failed",
			"field", name,
			"error", serrors.New(serrors.CodeSynchronizerWrite).WithField(name).Wrap(err))
		for _, o := range s.observers {
			o.UpdateFailed(name, err)
		}
	}
}

// await runs a deferred snapshot read in the background and hands the
// result back to the store's goroutine.
func (s *Store) await(f *field, read func(context.Context) (any, error)) {
	s.inbox.begin()
	ctx := s.ctx
	go func() {
		v, err := read(ctx)
		s.dispatch(func() {
			s.settle(f, v, err)
		})
	}()
}

// settle applies a finished deferred read: a value is committed through the
// field's action, an empty result or a failure pushes the initial value to
// the source.
func (s *Store) settle(f *field, v any, err error) {
	if s.closed {
		return
	}
	switch {
	case err != nil && !errors.Is(err, ErrNoSnapshot):
		s.reportFallback(f, err)
		s.push(f, f.decl.sync.InitialValue())
	case err != nil || v == nil:
		s.reportFallback(f, nil)
		s.push(f, f.decl.sync.InitialValue())
	default:
		s.write(f.name(), v)
	}
}

// dispatch hands fn to the dispatcher, or queues it for ApplyPending.
func (s *Store) dispatch(fn func()) {
	if s.dispatcher != nil {
		s.dispatcher(func() {
			s.inbox.done()
			fn()
		})
		return
	}
	s.inbox.post(fn)
}

// ApplyPending runs the results of deferred reads that have arrived, on
// the calling goroutine, and returns how many ran. It does not block.
func (s *Store) ApplyPending() int {
	fns := s.inbox.drain()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Settle applies deferred read results until none are outstanding or ctx
// is done. With a dispatcher installed it only waits for the host to run
// them.
func (s *Store) Settle(ctx context.Context) error {
	for {
		s.ApplyPending()
		if s.inbox.idle() {
			return nil
		}
		select {
		case <-s.inbox.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// inbox collects continuations produced off the store's goroutine.
type inbox struct {
	mu          sync.Mutex
	queue       []func()
	outstanding int
	wake        chan struct{}
}

func newInbox() *inbox {
	return &inbox{wake: make(chan struct{}, 1)}
}

func (in *inbox) begin() {
	in.mu.Lock()
	in.outstanding++
	in.mu.Unlock()
}

func (in *inbox) post(fn func()) {
	in.mu.Lock()
	in.queue = append(in.queue, fn)
	in.mu.Unlock()
	in.signal()
}

// done marks one continuation as run by an external dispatcher.
func (in *inbox) done() {
	in.mu.Lock()
	in.outstanding--
	in.mu.Unlock()
	in.signal()
}

func (in *inbox) drain() []func() {
	in.mu.Lock()
	defer in.mu.Unlock()
	q := in.queue
	in.queue = nil
	in.outstanding -= len(q)
	return q
}

func (in *inbox) idle() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.outstanding == 0 && len(in.queue) == 0
}

func (in *inbox) signal() {
	select {
	case in.wake <- struct{}{}:
	default:
	}
}
