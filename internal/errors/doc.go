// Package errors provides structured, coded errors for stan.
//
// Every error the store reports to a caller carries a code from the
// registry, a category, the field it concerns (if any) and an optional
// wrapped cause:
//
//	err := errors.New(errors.CodeInvalidFieldValue).
//	    WithField("count").
//	    WithSuggestion("Declare the field with stan.Computed")
//
//	fmt.Println(err.Format())
//	// ERROR S001: Invalid field value
//	//
//	//   field: count
//	//
//	//   A literal field was declared with a function value. ...
//
// # Error Categories
//
//   - construction: the field declaration set is malformed
//   - derivation: a computed field's function panicked
//   - synchronizer: an external field source failed to read or write
//   - access: an operation named a field that cannot serve it
//   - config: the CLI configuration is invalid
//
// Errors compare by code with errors.Is, so a registry template built with
// New works as a sentinel.
package errors
