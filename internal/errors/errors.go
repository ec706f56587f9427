// Package errors defines the error taxonomy shared across every LeIndex
// package boundary: parser, PDG, search, storage, and orchestrator all
// return *Error rather than ad hoc per-package error types, so callers at
// the CLI/RPC boundary can map a single Category to an exit code or a
// JSON-RPC error without knowing which subsystem produced it.
package errors

import "fmt"

// Category is the machine-stable classification from spec §7.
type Category string

const (
	InvalidInput Category = "invalid_input"
	NotFound     Category = "not_found"
	Unavailable  Category = "unavailable"
	Timeout      Category = "timeout"
	Corrupted    Category = "corrupted"
	Unsupported  Category = "unsupported"
	Internal     Category = "internal"
)

// Error is the single error shape returned across subsystem boundaries.
type Error struct {
	Category    Category
	Code        string // machine-stable, e.g. "dimension_mismatch"
	Message     string // short human sentence
	Remediation string // only meaningful for InvalidInput
	Correlation string // correlation id, only meaningful for Internal
	Underlying  error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Underlying }

// Is reports whether target is an *Error with the same non-empty Category,
// so errors.Is(err, sentinel) matches any *Error of the sentinel's category
// regardless of Code or Message; see CategoryOf.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Category != "" && t.Category == e.Category
}

func New(cat Category, code, message string) *Error {
	return &Error{Category: cat, Code: code, Message: message}
}

func Wrap(cat Category, code, message string, err error) *Error {
	return &Error{Category: cat, Code: code, Message: message, Underlying: err}
}

func (e *Error) WithRemediation(r string) *Error {
	e.Remediation = r
	return e
}

func (e *Error) WithCorrelation(id string) *Error {
	e.Correlation = id
	return e
}

// CategoryOf extracts the Category of err if it is (or wraps) an *Error,
// defaulting to Internal for anything else so dispatch code always has a
// category to act on.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	var e *Error
	if as(err, &e) {
		return e.Category
	}
	return Internal
}

// as is a tiny local errors.As to avoid importing the standard "errors"
// package under a name that collides with this package's own name at call
// sites that `import "github.com/leindex/leindex/internal/errors"`.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
