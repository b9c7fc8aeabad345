package stan

// Kind identifies how a field obtains its value.
type Kind int

const (
	// KindLiteral fields hold a plain value and have an action.
	KindLiteral Kind = iota

	// KindComputed fields are derived from other fields and are read-only.
	KindComputed

	// KindSynchronized fields are seeded from and written through to a
	// Synchronizer, and have an action.
	KindSynchronized
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindComputed:
		return "computed"
	case KindSynchronized:
		return "synchronized"
	default:
		return "unknown"
	}
}

// Derivation computes a field from the current state. Every field read
// through s becomes a dependency of the computed field.
type Derivation func(s State) any

// Field is a declared store field. Build one with Literal, Computed or
// Synchronized.
type Field struct {
	name   string
	kind   Kind
	value  any
	derive Derivation
	sync   Synchronizer
}

// Fields is an ordered field declaration set.
type Fields []Field

// Literal declares a plain field holding v. A function value is rejected
// by New with ErrInvalidFieldValue.
func Literal(name string, v any) Field {
	return Field{name: name, kind: KindLiteral, value: v}
}

// Computed declares a read-only field derived by fn.
func Computed(name string, fn Derivation) Field {
	return Field{name: name, kind: KindComputed, derive: fn}
}

// Synchronized declares a field bound to an external value source.
func Synchronized(name string, s Synchronizer) Field {
	return Field{name: name, kind: KindSynchronized, sync: s}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// Kind returns the field kind.
func (f Field) Kind() Kind { return f.kind }

// Writable reports whether the store generates an action for the field.
func (f Field) Writable() bool { return f.kind != KindComputed }

// initial returns the value the field starts from at construction and
// returns to on Reset.
func (f Field) initial() any {
	if f.kind == KindSynchronized {
		return f.sync.InitialValue()
	}
	return f.value
}
