package stan

// Value returns the named field of s as a T, or the zero T if the field is
// missing or holds another type.
func Value[T any](s State, name string) T {
	v, _ := s.Get(name).(T)
	return v
}

// Get returns the named field of the store as a T.
func Get[T any](s *Store, name string) T {
	return Value[T](s.state, name)
}

// Update adapts a typed update function to an Updater.
func Update[T any](fn func(T) T) Updater {
	return func(prev any) any {
		p, _ := prev.(T)
		return fn(p)
	}
}
