package stan

import (
	"context"
	"log/slog"

	serrors "github.com/vango-dev/stan/internal/errors"
)

// Store is a reactive state container. Create one with New.
//
// A Store is not safe for concurrent use; see WithDispatcher for writes
// originating on other goroutines.
type Store struct {
	fields   map[string]*field
	order    []string
	state    *table
	registry *registry
	actions  Actions
	batch    batchState
	inbox    *inbox

	logger     *slog.Logger
	observers  []Observer
	dispatcher func(func())

	ctx    context.Context
	cancel context.CancelFunc

	constructing bool
	closed       bool
	closers      []func()
}

// field is the store's record of a declared field.
type field struct {
	decl     Field
	computed *computed
}

func (f *field) name() string { return f.decl.name }

// New builds a store from a field declaration set.
//
// Literal and synchronized fields are seeded in declaration order, then
// computed fields are evaluated. New returns ErrInvalidFieldValue for a
// function literal, ErrInvalidFieldName for an empty or repeated name, and
// ErrDerivation if a derivation panics or depends on itself.
func New(fields Fields, opts ...Option) (s *Store, err error) {
	o := applyOptions(opts)
	ctx, cancel := context.WithCancel(o.ctx)

	s = &Store{
		fields:     make(map[string]*field, len(fields)),
		state:      newTable(len(fields)),
		registry:   newRegistry(),
		inbox:      newInbox(),
		logger:     o.logger,
		observers:  o.observers,
		dispatcher: o.dispatcher,
		ctx:        ctx,
		cancel:     cancel,
	}

	for _, decl := range fields {
		if err := s.declare(decl); err != nil {
			cancel()
			return nil, err
		}
	}
	s.actions = s.buildActions()

	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*Error)
			if !ok || se.Code != serrors.CodeDerivation {
				panic(r)
			}
			s.Close()
			s, err = nil, se
		}
	}()

	s.constructing = true
	for _, name := range s.order {
		f := s.fields[name]
		switch f.decl.kind {
		case KindLiteral:
			s.state.values[name] = f.decl.value
		case KindSynchronized:
			s.bindSynchronizer(f)
		}
	}
	for _, name := range s.order {
		if c := s.fields[name].computed; c != nil && !c.initialized {
			s.evaluate(c)
		}
	}
	s.constructing = false

	return s, nil
}

// declare validates one declaration and records it.
func (s *Store) declare(decl Field) error {
	if decl.name == "" {
		return serrors.New(serrors.CodeInvalidFieldName).WithDetail("Field names must not be empty.")
	}
	if _, dup := s.fields[decl.name]; dup {
		return serrors.New(serrors.CodeInvalidFieldName).
			WithField(decl.name).
			WithDetail("Field " + decl.name + " is declared more than once.")
	}

	f := &field{decl: decl}
	switch decl.kind {
	case KindLiteral:
		if isFunc(decl.value) {
			return serrors.New(serrors.CodeInvalidFieldValue).
				WithField(decl.name).
				WithSuggestion("Declare derived fields with stan.Computed")
		}
	case KindComputed:
		if decl.derive == nil {
			return serrors.New(serrors.CodeInvalidFieldValue).
				WithField(decl.name).
				WithDetail("Computed field " + decl.name + " has no derivation.")
		}
		f.computed = &computed{name: decl.name, derive: decl.derive}
	case KindSynchronized:
		if decl.sync == nil {
			return serrors.New(serrors.CodeInvalidFieldValue).
				WithField(decl.name).
				WithDetail("Synchronized field " + decl.name + " has no synchronizer.")
		}
		if isFunc(decl.sync.InitialValue()) {
			return serrors.New(serrors.CodeInvalidFieldValue).
				WithField(decl.name).
				WithDetail("The synchronizer's initial value is a function.")
		}
	default:
		return serrors.New(serrors.CodeInvalidFieldValue).WithField(decl.name)
	}

	s.fields[decl.name] = f
	s.order = append(s.order, decl.name)
	s.state.names = append(s.state.names, decl.name)
	return nil
}

// GetState returns a live view of the store's fields.
func (s *Store) GetState() State {
	return s.state
}

// Snapshot returns a copy of every field's current value.
func (s *Store) Snapshot() map[string]any {
	return s.state.snapshot()
}

// Names returns the field names in declaration order.
func (s *Store) Names() []string {
	return s.state.Names()
}

// Kind returns the kind of the named field.
func (s *Store) Kind(name string) (Kind, bool) {
	f, ok := s.fields[name]
	if !ok {
		return 0, false
	}
	return f.decl.kind, true
}

// Subscribe registers listener for changes to any of names and returns its
// disposer. With no names the listener observes every field.
func (s *Store) Subscribe(listener Listener, names ...string) Dispose {
	if listener == nil {
		return func() {}
	}
	if len(names) == 0 {
		names = s.order
	}
	return s.registry.add(names, listener)
}

// Subscriber returns a function subscribing listeners to names, the shape
// framework bindings consume.
func (s *Store) Subscriber(names ...string) func(Listener) Dispose {
	return func(l Listener) Dispose {
		return s.Subscribe(l, names...)
	}
}

// Close cancels outstanding deferred snapshot reads and detaches external
// synchronizer feeds. Results arriving after Close are dropped. The store
// stays readable and writable.
func (s *Store) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	for _, fn := range s.closers {
		fn()
	}
	s.closers = nil
}
