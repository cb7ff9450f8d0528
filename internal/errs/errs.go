// Package errs defines the error taxonomy shared by the feinsum packages.
//
// Every failure surfaced to callers of normalize, transform, measure and
// archive is an *Error carrying a Kind. Callers test the category with
// errors.Is against the Err* sentinels:
//
//	if errors.Is(err, errs.ErrUnsupported) {
//	    // multi-device context, query, ...
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind int

// Failure categories.
const (
	// Configuration covers conflicting or missing transform sources and
	// malformed transform bindings.
	Configuration Kind = iota + 1
	// Validation covers einsum internal inconsistencies.
	Validation
	// Capacity covers exceeded naming budgets.
	Capacity
	// Unsupported covers features outside the supported envelope.
	Unsupported
	// Lookup covers devices or dtypes missing from static tables.
	Lookup
	// Engine covers failures raised by the lowering, compilation or
	// execution collaborators.
	Engine
)

// String returns the category name.
func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Validation:
		return "validation"
	case Capacity:
		return "capacity"
	case Unsupported:
		return "unsupported"
	case Lookup:
		return "lookup"
	case Engine:
		return "engine"
	default:
		return "unknown"
	}
}

// Category sentinels for errors.Is.
var (
	ErrConfiguration = &Error{Kind: Configuration}
	ErrValidation    = &Error{Kind: Validation}
	ErrCapacity      = &Error{Kind: Capacity}
	ErrUnsupported   = &Error{Kind: Unsupported}
	ErrLookup        = &Error{Kind: Lookup}
	ErrEngine        = &Error{Kind: Engine}
)

// Error is a categorized failure with the operation that raised it.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "normalize" or "split_iname"
	Msg  string // human-readable detail
	Err  error  // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg += " in " + e.Op
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// New creates a categorized error.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a category and operation to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the category of err, or 0 when err is not categorized.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
