package stan

import (
	"context"
	"errors"
)

// ErrNoSnapshot is returned by a deferred snapshot read when the external
// source holds no value for the key.
var ErrNoSnapshot = errors.New("stan: no snapshot")

// Synchronizer is an external value source bound to a field, such as a
// persistent store or a sync channel shared with other stores.
type Synchronizer interface {
	// InitialValue is the declared value used when the source has none, and
	// the value Reset restores.
	InitialValue() any

	// GetSnapshot reads the source's current value for key. A returned
	// error makes the store fall back to InitialValue and push it to Update.
	GetSnapshot(key string) (Snapshot, error)

	// Update receives every value committed to the field.
	Update(value any, key string) error
}

// Subscriber is implemented by synchronizers that can report changes made
// outside the store. The store passes the field's action as set, so
// inbound values are equality-gated and notify like any other write.
type Subscriber interface {
	Subscribe(set func(value any), key string) (unsubscribe func())
}

type snapshotState int

const (
	snapshotMissing snapshotState = iota
	snapshotFound
	snapshotDeferred
)

// Snapshot is the result of a synchronizer read: a value available now,
// no value, or a read that completes later.
type Snapshot struct {
	state snapshotState
	value any
	read  func(ctx context.Context) (any, error)
}

// Found returns a snapshot holding v. Found(nil) is the same as Missing.
func Found(v any) Snapshot {
	if v == nil {
		return Missing()
	}
	return Snapshot{state: snapshotFound, value: v}
}

// Missing returns a snapshot reporting that the source has no value.
func Missing() Snapshot {
	return Snapshot{state: snapshotMissing}
}

// Deferred returns a snapshot whose value is produced by read on a
// background goroutine. read returning (nil, nil) or ErrNoSnapshot means
// the source has no value.
func Deferred(read func(ctx context.Context) (any, error)) Snapshot {
	if read == nil {
		return Missing()
	}
	return Snapshot{state: snapshotDeferred, read: read}
}

// Value returns the snapshot value if it is available now.
func (s Snapshot) Value() (any, bool) {
	return s.value, s.state == snapshotFound
}

// IsDeferred reports whether the value is only available through Resolve.
func (s Snapshot) IsDeferred() bool {
	return s.state == snapshotDeferred
}

// Resolve returns the snapshot value, running a deferred read on the
// calling goroutine. A missing value is reported as ErrNoSnapshot.
func (s Snapshot) Resolve(ctx context.Context) (any, error) {
	switch s.state {
	case snapshotFound:
		return s.value, nil
	case snapshotDeferred:
		v, err := s.read(ctx)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, ErrNoSnapshot
		}
		return v, nil
	default:
		return nil, ErrNoSnapshot
	}
}
