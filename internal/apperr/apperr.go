// Package apperr defines the closed set of error kinds surfaced by the API and
// their HTTP status classification.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for clients. The set is closed; unknown errors are
// always reported as Internal.
type Kind string

const (
	Validation         Kind = "validation_error"
	Unauthenticated    Kind = "unauthenticated"
	SessionExpired     Kind = "session_expired"
	Forbidden          Kind = "forbidden"
	NotFound           Kind = "not_found"
	Conflict           Kind = "conflict"
	CodeExpired        Kind = "code_expired"
	InvalidCode        Kind = "invalid_code"
	MethodNotSupported Kind = "method_not_supported"
	Internal           Kind = "internal_error"
)

// Error is a domain error carrying a Kind and a message that is safe to show
// to the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New returns a domain error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Invalid is shorthand for a Validation error, typically a missing field.
func Invalid(message string) *Error {
	return New(Validation, message)
}

// KindOf reports the kind of err, or Internal when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Status maps a kind to the HTTP status code returned to clients.
func Status(kind Kind) int {
	switch kind {
	case Validation, InvalidCode:
		return http.StatusBadRequest
	case Unauthenticated, SessionExpired:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case CodeExpired:
		return http.StatusGone
	case MethodNotSupported:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
