package stan

// computed is the runtime state of a computed field.
type computed struct {
	name        string
	derive      Derivation
	deps        []string
	depKey      string
	dispose     Dispose
	initialized bool
	computing   bool
	dirty       bool
}

// evaluate runs the derivation of c, re-subscribes c to exactly the fields
// it read and stores the result. The first evaluation writes the table
// directly; later ones go through commit so dependents and listeners react.
//
// A dependency written while c is being committed, typically by one of its
// own listeners, marks c dirty and the evaluation runs again.
func (s *Store) evaluate(c *computed) {
	if c.computing {
		if s.constructing {
			panic(cycleError(c.name))
		}
		c.dirty = true
		return
	}
	c.computing = true
	defer func() {
		c.computing = false
		c.dirty = false
	}()

	for {
		c.dirty = false
		t := newTracker(s, c.name)
		v := s.derive(c, t)
		s.track(c, t.recorded())

		if !c.initialized {
			c.initialized = true
			s.state.values[c.name] = v
		} else {
			s.commit(c.name, v)
		}

		for _, o := range s.observers {
			o.Recomputed(c.name, len(c.deps))
		}
		if !c.dirty {
			return
		}
	}
}

// derive calls the derivation, turning a panic into a DerivationError that
// keeps propagating to whoever triggered the evaluation.
func (s *Store) derive(c *computed, t *tracker) any {
	defer func() {
		if r := recover(); r != nil {
			panic(derivationError(c.name, r))
		}
	}()
	return c.derive(t)
}

// track replaces the dependency subscription of c. An unchanged dependency
// set keeps its subscription.
func (s *Store) track(c *computed, deps []string) {
	c.deps = deps
	key, _ := compositeKey(deps)
	if c.dispose != nil && key == c.depKey {
		return
	}
	if c.dispose != nil {
		c.dispose()
		c.dispose = nil
	}
	c.depKey = key
	if len(deps) == 0 {
		return
	}
	c.dispose = s.registry.addDerived(deps, func(any) {
		s.evaluate(c)
	})
}

// Dependencies returns the fields the named computed field read during its
// latest evaluation.
func (s *Store) Dependencies(field string) []string {
	f, ok := s.fields[field]
	if !ok || f.computed == nil {
		return nil
	}
	out := make([]string, len(f.computed.deps))
	copy(out, f.computed.deps)
	return out
}
