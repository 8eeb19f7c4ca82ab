// Package apperr defines the error taxonomy shared by the rewards services and
// the mapping of each kind onto an HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for propagation and rendering.
type Kind int

// Kind constants, ordered from caller faults to server faults.
const (
	// KindInternal marks storage failures and other unexpected faults.
	KindInternal Kind = iota
	// KindValidation marks malformed input or an illegal state transition.
	KindValidation
	// KindConflict marks a request that is well-formed but cannot be applied to the current state.
	KindConflict
	// KindNotFound marks an absent offer, order, profile or redemption.
	KindNotFound
	// KindExternal marks a failure attributed to an upstream collaborator.
	KindExternal
	// KindUnauthenticated marks a request whose credential or signature did not verify.
	KindUnauthenticated
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindConflict:
		return "ConflictError"
	case KindNotFound:
		return "NotFoundError"
	case KindExternal:
		return "ExternalServiceError"
	case KindUnauthenticated:
		return "UnauthenticatedError"
	default:
		return "InternalError"
	}
}

// Error is a classified error with a human-readable message.
type Error struct {
	Kind    Kind   // Taxonomy bucket.
	Message string // Reason returned to the caller.
	Err     error  // Underlying cause, never rendered.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// Validation returns a ValidationError.
func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

// Conflict returns a ConflictError.
func Conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

// NotFound returns a NotFoundError.
func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

// External returns an ExternalServiceError wrapping cause.
func External(message string, cause error) error {
	return &Error{Kind: KindExternal, Message: message, Err: cause}
}

// Unauthenticated returns an UnauthenticatedError wrapping cause.
func Unauthenticated(message string, cause error) error {
	return &Error{Kind: KindUnauthenticated, Message: message, Err: cause}
}

// Internal returns an InternalError wrapping cause.
func Internal(message string, cause error) error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}

// KindOf reports the kind of err; unclassified errors are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindExternal:
		return http.StatusBadGateway
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
