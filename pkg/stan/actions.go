package stan

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Updater computes a field's new value from its current value.
type Updater func(prev any) any

// Action sets a field. It accepts an Updater (or a func(any) any) to derive
// the new value from the current one; any other argument is the new value.
// Writing a value equal to the current one does nothing.
type Action func(valueOrUpdater any)

// Actions maps action names ("setCount" for field "count") to actions.
// Computed fields have no entry.
type Actions map[string]Action

// ActionName returns the action name of a field: "set" followed by the
// field name with its first letter upper-cased. The rest is kept as is.
func ActionName(field string) string {
	_, size := utf8.DecodeRuneInString(field)
	return "set" + cases.Title(language.Und).String(field[:size]) + field[size:]
}

// For returns the action of the named field.
func (a Actions) For(field string) (Action, bool) {
	act, ok := a[ActionName(field)]
	return act, ok
}

func asUpdater(v any) (Updater, bool) {
	switch fn := v.(type) {
	case Updater:
		return fn, fn != nil
	case func(any) any:
		return fn, fn != nil
	}
	return nil, false
}

// buildActions generates one action per writable field.
func (s *Store) buildActions() Actions {
	actions := make(Actions, len(s.order))
	for _, name := range s.order {
		f := s.fields[name]
		if !f.decl.Writable() {
			continue
		}
		actions[ActionName(name)] = s.actionFor(name)
	}
	return actions
}

func (s *Store) actionFor(name string) Action {
	return func(v any) {
		s.write(name, v)
	}
}

// Actions returns the generated actions. The map is shared; do not modify it.
func (s *Store) Actions() Actions {
	return s.actions
}

// Action returns the action of the named field. Computed and unknown
// fields have none.
func (s *Store) Action(field string) (Action, bool) {
	f, ok := s.fields[field]
	if !ok || !f.decl.Writable() {
		return nil, false
	}
	return s.actions.For(field)
}

// Set writes a field through its action. It returns ErrUnknownField or
// ErrReadOnlyField instead of writing when the field has no action.
func (s *Store) Set(field string, valueOrUpdater any) error {
	f, ok := s.fields[field]
	if !ok {
		return unknownField(field)
	}
	if !f.decl.Writable() {
		return readOnlyField(field)
	}
	s.write(field, valueOrUpdater)
	return nil
}
