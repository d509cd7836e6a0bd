// Package apperr defines the domain error taxonomy shared by repositories,
// services and HTTP handlers.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error.
type Kind int

const (
	// KindInternal is an unexpected failure (storage I/O and the like).
	KindInternal Kind = iota
	// KindValidation means required fields are missing or malformed.
	KindValidation
	// KindReference means a referenced topic or level is invalid.
	KindReference
	// KindNotFound means the entity does not exist.
	KindNotFound
	// KindConflict means a duplicate id or unique constraint violation.
	KindConflict
	// KindMedia means an external media upload or TTS call failed.
	KindMedia
	// KindUnauthorized means credentials are missing or invalid.
	KindUnauthorized
	// KindForbidden means the caller lacks the required role.
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindReference:
		return "reference"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindMedia:
		return "media"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
	// Missing lists absent required fields for KindValidation.
	Missing []string
	// Timeout is set when a KindMedia failure was caused by a deadline.
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports missing required fields.
func Validation(missing []string) *Error {
	return &Error{Kind: KindValidation, Message: "Missing required fields", Missing: missing}
}

// Invalid reports a malformed input that is not a missing field.
func Invalid(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Reference reports an invalid topic or level reference.
func Reference(format string, args ...any) *Error {
	return &Error{Kind: KindReference, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Conflict reports a unique constraint violation.
func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

// Media wraps an external media or TTS failure. Deadline errors are flagged
// as timeouts.
func Media(op string, err error) *Error {
	e := &Error{Kind: KindMedia, Message: op + " failed", Err: err}
	if errors.Is(err, context.DeadlineExceeded) {
		e.Message = op + " timed out"
		e.Timeout = true
	}
	return e
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden reports an insufficient role.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps err to the status code clients see.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindReference, KindConflict, KindMedia:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
