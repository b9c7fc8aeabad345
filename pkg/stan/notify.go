package stan

// notify fans a change of field out to every matching composite key.
// Dependent computed fields are brought up to date first, so every
// listener of the change reads their new values. Inside a batch both steps
// are deferred to the flush.
func (s *Store) notify(field string) {
	entries := s.registry.matching(field)
	for _, e := range entries {
		if len(e.derived) == 0 {
			continue
		}
		if s.batch.active() {
			s.batch.queueDerived(e)
			continue
		}
		s.recompute(e)
	}
	for _, e := range entries {
		if len(e.subs) == 0 {
			continue
		}
		if s.batch.active() {
			s.batch.queue(e)
			continue
		}
		s.deliver(e)
	}
}

// recompute runs the computed-field edges registered on one key.
func (s *Store) recompute(e *keyEntry) {
	s.run(e, e.derived, false)
}

// deliver runs the listeners of one key. Listeners removed during the pass
// are skipped.
func (s *Store) deliver(e *keyEntry) {
	s.run(e, e.subs, true)
}

// run calls each subscription of list still registered. With withValue,
// single-field keys pass the field's current value.
func (s *Store) run(e *keyEntry, list []*subscription, withValue bool) {
	subs := make([]*subscription, len(list))
	copy(subs, list)

	n := 0
	for _, sub := range subs {
		if sub.removed {
			continue
		}
		var payload any
		if withValue && e.single != "" {
			payload = s.state.values[e.single]
		}
		sub.fn(payload)
		n++
	}
	for _, o := range s.observers {
		o.KeyNotified(e.key, n)
	}
}

// write applies an action input: Updaters are resolved against the current
// value first.
func (s *Store) write(name string, v any) {
	if u, ok := asUpdater(v); ok {
		v = u(s.state.values[name])
	}
	s.commit(name, v)
}

// commit stores v if it differs from the current value and notifies.
func (s *Store) commit(name string, v any) {
	if Equal(s.state.values[name], v) {
		for _, o := range s.observers {
			o.WriteSuppressed(name)
		}
		return
	}
	s.state.values[name] = v
	for _, o := range s.observers {
		o.FieldWritten(name)
	}
	s.notify(name)
}
