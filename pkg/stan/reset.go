package stan

// Reset writes the declared initial value of each named field through its
// action: the literal value, or the synchronizer's InitialValue (never the
// persisted snapshot). With no names every field is reset. Computed fields
// are skipped. An unknown name fails the call before any field is written.
func (s *Store) Reset(names ...string) error {
	if len(names) == 0 {
		names = s.order
	}
	for _, name := range names {
		if _, ok := s.fields[name]; !ok {
			return unknownField(name)
		}
	}
	for _, name := range names {
		f := s.fields[name]
		if !f.decl.Writable() {
			continue
		}
		s.commit(name, f.decl.initial())
	}
	return nil
}
