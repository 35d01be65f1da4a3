// Package errs defines the error kinds shared by the authorizer, the calendar
// client and the tool dispatcher.
//
// Callers branch on Kind instead of parsing message text:
//
//	if errs.KindOf(err) == errs.Validation {
//	    return mcp.NewToolResultError(err.Error()), nil
//	}
package errs

import (
	"errors"
)

// Kind classifies a failure.
type Kind int

const (
	// Unknown is returned by KindOf for errors that were not created by this package.
	Unknown Kind = iota
	// Configuration covers missing or malformed settings. Fatal at startup.
	Configuration
	// Validation covers tool input that fails schema or value checks.
	Validation
	// Authorization covers the OAuth flow: listener faults, denied consent, code exchange.
	Authorization
	// ProviderCall covers failures returned by the calendar provider.
	ProviderCall
)

// String returns the lower-case kind name used in logs.
func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Validation:
		return "validation"
	case Authorization:
		return "authorization"
	case ProviderCall:
		return "provider_call"
	default:
		return "unknown"
	}
}

// Error is a classified error. Message is what callers show to users; Err keeps
// the original cause for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface. Only Message is returned so that the
// cause's type never leaks into tool results.
func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error with the given message and cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
