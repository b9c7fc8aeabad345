package stan

import (
	"fmt"

	serrors "github.com/vango-dev/stan/internal/errors"
)

// Error is the structured error type returned and panicked by the store.
// Use errors.Is with the sentinels below to test for a kind.
type Error = serrors.StoreError

// Sentinel errors, compared by code.
var (
	// ErrInvalidFieldValue reports a function supplied as a literal value.
	ErrInvalidFieldValue = serrors.New(serrors.CodeInvalidFieldValue)

	// ErrInvalidFieldName reports an empty or duplicate field name.
	ErrInvalidFieldName = serrors.New(serrors.CodeInvalidFieldName)

	// ErrDerivation reports a computed field whose derivation panicked.
	ErrDerivation = serrors.New(serrors.CodeDerivation)

	// ErrSynchronizerRead reports a failed snapshot read. The store
	// recovers from it; it only reaches observers and logs.
	ErrSynchronizerRead = serrors.New(serrors.CodeSynchronizerRead)

	// ErrSynchronizerWrite reports a failed Update. The committed value
	// stays in the store.
	ErrSynchronizerWrite = serrors.New(serrors.CodeSynchronizerWrite)

	// ErrUnknownField reports an operation naming a field the store lacks.
	ErrUnknownField = serrors.New(serrors.CodeUnknownField)

	// ErrReadOnlyField reports a write to a computed field.
	ErrReadOnlyField = serrors.New(serrors.CodeReadOnlyField)
)

func unknownField(name string) error {
	return serrors.New(serrors.CodeUnknownField).WithField(name)
}

func readOnlyField(name string) error {
	return serrors.New(serrors.CodeReadOnlyField).
		WithField(name).
		WithSuggestion("Write the fields " + name + " is derived from instead")
}

// derivationError converts a recovered panic value into a DerivationError.
func derivationError(name string, recovered any) *Error {
	if se, ok := recovered.(*Error); ok && se.Code == serrors.CodeDerivation {
		return se
	}
	cause, ok := recovered.(error)
	if !ok {
		cause = fmt.Errorf("%v", recovered)
	}
	return serrors.New(serrors.CodeDerivation).WithField(name).Wrap(cause)
}

func cycleError(name string) *Error {
	return serrors.New(serrors.CodeDerivation).
		WithField(name).
		WithDetail("Computed field " + name + " depends on itself through other computed fields.")
}
