package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping. Every error that crosses a
// handler boundary carries exactly one Kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindPrecondition
	KindConflict
	KindDependency
)

// Error is the application error type. Code is a stable machine-readable
// identifier the client can branch on; Message is human-readable.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with an explicit kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches an underlying cause to a new Error.
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// Precondition reports an entity that exists but is not in the state the
// requested operation needs (stage mismatch, occupied vehicle, etc).
func Precondition(code, message string) *Error {
	return New(KindPrecondition, code, message)
}

// Conflict reports a duplicate active workflow item or a lost race.
func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

// Dependency reports an unreachable external collaborator. These are never
// masked as validation failures.
func Dependency(message string, err error) *Error {
	return Wrap(KindDependency, "dependency_unavailable", message, err)
}

// KindOf extracts the Kind from an error chain, KindUnknown if absent.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf extracts the stable code from an error chain, empty if absent.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf extracts the human-readable message from an error chain, falling
// back to the raw error text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// HTTPStatus maps a Kind onto the conventional status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindPrecondition, KindConflict:
		return http.StatusConflict
	case KindDependency:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
