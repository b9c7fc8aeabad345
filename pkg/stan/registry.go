package stan

import (
	"slices"
	"strings"
)

// keyDelimiter joins field names into a composite key.
const keyDelimiter = "\x00"

// Listener is called when a subscribed field changes. Subscriptions to a
// single field receive that field's current value; subscriptions to several
// fields receive nil.
type Listener func(value any)

// Dispose removes a subscription. Calling it more than once is a no-op.
type Dispose func()

type subscription struct {
	fn      Listener
	removed bool
}

// keyEntry holds the listeners of one composite key. derived holds the
// dependency edges of computed fields; they run before subs for every
// change so that listeners never read a stale computed value.
type keyEntry struct {
	key     string
	fields  map[string]struct{}
	single  string
	derived []*subscription
	subs    []*subscription
}

func (e *keyEntry) matches(field string) bool {
	_, ok := e.fields[field]
	return ok
}

// registry maps composite keys to listener lists. Keys stay registered
// after their last listener is removed.
type registry struct {
	byKey map[string]*keyEntry
	keys  []*keyEntry
}

func newRegistry() *registry {
	return &registry{byKey: make(map[string]*keyEntry)}
}

// compositeKey deduplicates and sorts names and joins them.
func compositeKey(names []string) (string, []string) {
	fields := slices.Clone(names)
	slices.Sort(fields)
	fields = slices.Compact(fields)
	return strings.Join(fields, keyDelimiter), fields
}

// entry returns the entry for names, creating it on first use.
func (r *registry) entry(names []string) *keyEntry {
	key, fields := compositeKey(names)
	if e, ok := r.byKey[key]; ok {
		return e
	}
	e := &keyEntry{key: key, fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		e.fields[f] = struct{}{}
	}
	if len(fields) == 1 {
		e.single = fields[0]
	}
	r.byKey[key] = e
	r.keys = append(r.keys, e)
	return e
}

// add appends fn to the listener list of names and returns its disposer.
func (r *registry) add(names []string, fn Listener) Dispose {
	e := r.entry(names)
	return insert(&e.subs, fn)
}

// addDerived registers the dependency edge of a computed field on names.
func (r *registry) addDerived(names []string, fn Listener) Dispose {
	e := r.entry(names)
	return insert(&e.derived, fn)
}

func insert(list *[]*subscription, fn Listener) Dispose {
	sub := &subscription{fn: fn}
	*list = append(*list, sub)
	return func() {
		if sub.removed {
			return
		}
		sub.removed = true
		*list = slices.DeleteFunc(*list, func(s *subscription) bool { return s == sub })
	}
}

// matching returns the entries whose key contains field, in key
// registration order. The result is a copy, so keys registered while it is
// being walked are not visited.
func (r *registry) matching(field string) []*keyEntry {
	var out []*keyEntry
	for _, e := range r.keys {
		if e.matches(field) {
			out = append(out, e)
		}
	}
	return out
}
