package stan

// Effect runs run once against a tracking view of the state, then again
// (against the full state) whenever a field it depends on changes. The
// dependencies are deps if given, otherwise the fields the first run read,
// otherwise every field. It returns the disposer of the subscription.
func (s *Store) Effect(run func(State), deps ...string) Dispose {
	t := newTracker(s, "")
	run(t)

	keys := deps
	if len(keys) == 0 {
		keys = t.recorded()
	}
	if len(keys) == 0 {
		keys = s.order
	}
	return s.registry.add(keys, func(any) {
		run(s.state)
	})
}
