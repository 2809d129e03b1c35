// Package errkind defines the closed set of error kinds used across Lucy's
// request/task core. Components never raise exceptions for control flow;
// every fallible operation returns an error whose kind can be inspected with
// As.
package errkind

import "errors"

// Kind is a coarse classification of a failure, used to decide retry,
// fallback, and user-facing degradation behavior.
type Kind string

const (
	PathTraversal    Kind = "path_traversal"
	IOError          Kind = "io_error"
	DuplicateBlocked Kind = "duplicate_blocked"
	NeedsApproval    Kind = "needs_approval"
	CircuitOpen      Kind = "circuit_open"
	ToolTimeout      Kind = "tool_timeout"
	RateLimited      Kind = "rate_limited"
	AuthError        Kind = "auth_error"
	InvalidParams    Kind = "invalid_params"
	Retryable        Kind = "retryable"
	Fatal            Kind = "fatal"
	ModelUnavailable Kind = "model_unavailable"
	ContextOverflow  Kind = "context_overflow"
	Unknown          Kind = "unknown"
)

// Error wraps an underlying cause with a Kind, suitable for errors.As.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with the given kind and message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error with the given kind, message, and cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Of extracts the Kind from err, returning Unknown if err does not carry one.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}
