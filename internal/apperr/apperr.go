// Package apperr defines the error taxonomy shared by every domain package.
//
// Services return *Error values for conditions the caller should see
// verbatim. Anything else that reaches the HTTP boundary is treated as a
// system error: logged in full and replaced by a generic message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable category of an Error.
type Kind int

// Error kinds.
const (
	KindSystem Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindUpstream
)

// SystemMessage is returned to callers in place of unexpected failures.
const SystemMessage = "An unexpected error occurred. Please try again or confirm current operation status"

// Error is a domain error with a stable code and a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	// Fields maps request field names to messages for validation errors.
	Fields map[string]string
	// Err is the underlying cause; never shown to callers.
	Err error
}

func (e *Error) Error() string {
	msg := e.Code()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the wire code for the error kind.
func (e *Error) Code() string {
	switch e.Kind {
	case KindBadRequest:
		return "BadRequest"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "UnprocessableEntity"
	case KindUpstream:
		return "BadGateway"
	default:
		return "SystemError"
	}
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest reports an invalid state transition or business-rule violation.
func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized reports a missing, invalid or expired credential.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Forbidden reports an authenticated caller that may not touch the resource.
// An empty name yields a Forbidden error without a message.
func Forbidden(name string) *Error {
	e := &Error{Kind: KindForbidden}
	if name != "" {
		e.Message = fmt.Sprintf("Unauthorized: %s is not allowed to access or change this resource", name)
	}
	return e
}

// NotFound reports an absent entity.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input, keyed by request field name.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation error", Fields: fields}
}

// Upstream reports a failed call to a required external dependency.
func Upstream(err error, format string, args ...any) *Error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...), Err: err}
}

// System wraps an unexpected failure.
func System(err error) *Error {
	return &Error{Kind: KindSystem, Message: SystemMessage, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
