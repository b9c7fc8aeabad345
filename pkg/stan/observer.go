package stan

import "strings"

// Observer receives store events for metrics and tracing. Callbacks run
// synchronously on the store's goroutine and must not write to the store.
type Observer interface {
	// FieldWritten is called after a changed value is committed.
	FieldWritten(field string)

	// WriteSuppressed is called when a write equals the current value.
	WriteSuppressed(field string)

	// KeyNotified is called after the listeners of a composite key ran.
	KeyNotified(key string, listeners int)

	// Recomputed is called after a computed field was evaluated.
	Recomputed(field string, deps int)

	// BatchStarted is called when an outermost batch begins.
	BatchStarted()

	// BatchFlushed is called when an outermost batch delivered its keys.
	BatchFlushed(keys int)

	// SnapshotFallback is called when a synchronized field falls back to
	// its initial value. err is nil when the source simply had no value.
	SnapshotFallback(field string, err error)

	// UpdateFailed is called when a synchronizer rejected a committed value.
	UpdateFailed(field string, err error)
}

// NopObserver implements Observer with no-ops. Embed it to implement only
// some callbacks.
type NopObserver struct{}

func (NopObserver) FieldWritten(string)            {}
func (NopObserver) WriteSuppressed(string)         {}
func (NopObserver) KeyNotified(string, int)        {}
func (NopObserver) Recomputed(string, int)         {}
func (NopObserver) BatchStarted()                  {}
func (NopObserver) BatchFlushed(int)               {}
func (NopObserver) SnapshotFallback(string, error) {}
func (NopObserver) UpdateFailed(string, error)     {}

// KeyFields splits a composite key into its field names.
func KeyFields(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, keyDelimiter)
}
