package stan

import "slices"

// State is a read-only view of a store's fields.
type State interface {
	// Get returns the current value of the named field, or nil if the
	// store has no such field.
	Get(name string) any

	// Names returns the field names in declaration order.
	Names() []string
}

// table holds the authoritative value of every field.
type table struct {
	values map[string]any
	names  []string
}

func newTable(capacity int) *table {
	return &table{
		values: make(map[string]any, capacity),
		names:  make([]string, 0, capacity),
	}
}

func (t *table) Get(name string) any {
	return t.values[name]
}

func (t *table) Names() []string {
	return slices.Clone(t.names)
}

// snapshot copies the current values.
func (t *table) snapshot() map[string]any {
	out := make(map[string]any, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}
