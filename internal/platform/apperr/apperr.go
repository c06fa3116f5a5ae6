// Package apperr defines the error taxonomy shared by every workflow and the
// mapping from that taxonomy to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a workflow failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindDependency Kind = "dependency"
)

// ErrNotFound is wrapped by repositories when a document does not exist.
var ErrNotFound = errors.New("not found")

// Error is the concrete error type returned by services.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed input. field may be empty for message-level errors.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Dependency wraps a failing store, mailer or identity provider call. step names
// the workflow step so operators can locate the partial-failure window.
func Dependency(step string, err error) *Error {
	return &Error{Kind: KindDependency, Message: step, Err: err}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsForbidden(err error) bool  { return KindOf(err) == KindForbidden }
func IsDependency(err error) bool { return KindOf(err) == KindDependency }

// IsNotFound matches both typed NotFound errors and repository ErrNotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound || errors.Is(err, ErrNotFound)
}

// Lift turns a repository error into a NotFound error carrying msg when the
// document is missing, and into a Dependency error otherwise.
func Lift(err error, step, msg string) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return NotFound(msg)
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Dependency(step, err)
}

// HTTPStatus maps err to a response code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindDependency:
		return http.StatusBadGateway
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
