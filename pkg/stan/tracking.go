package stan

// tracker is a State that records the declared fields read through it. It
// is handed to derivations and to the first run of an effect.
type tracker struct {
	s    *Store
	self string
	seen map[string]struct{}
	deps []string
}

func newTracker(s *Store, self string) *tracker {
	return &tracker{s: s, self: self, seen: make(map[string]struct{})}
}

func (t *tracker) Get(name string) any {
	f, ok := t.s.fields[name]
	if !ok {
		return nil
	}
	if name == t.self {
		return t.s.state.Get(name)
	}
	if _, dup := t.seen[name]; !dup {
		t.seen[name] = struct{}{}
		t.deps = append(t.deps, name)
	}
	// Computed fields initialise on first read while the store is built.
	if c := f.computed; c != nil && !c.initialized {
		t.s.evaluate(c)
	}
	return t.s.state.Get(name)
}

func (t *tracker) Names() []string {
	return t.s.state.Names()
}

// recorded returns the fields read so far, in first-read order.
func (t *tracker) recorded() []string {
	return t.deps
}
