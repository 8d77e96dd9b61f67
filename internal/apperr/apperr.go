// Package apperr defines the error taxonomy shared by the service and API
// layers. Every error that crosses the HTTP boundary carries a stable,
// machine-checkable code; internal detail stays out of the message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeNotFound            = "NOT_FOUND"
	CodeStorage             = "STORAGE_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error is a categorized application error. Err holds the wrapped cause for
// operator logs; Message is what the caller may see.
type Error struct {
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

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error code to an HTTP status
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeInsufficientCredits:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Validation reports missing or malformed input. Detected before any mutation.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// Unauthorized reports a missing or invalid identity.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// Forbidden reports a role or ownership violation.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// InsufficientCredits reports an expected business condition, not a fault.
func InsufficientCredits() *Error {
	return &Error{Code: CodeInsufficientCredits, Message: "Insufficient credits"}
}

// NotFound reports an absent entity, or one not owned by the caller.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// Storage wraps a filesystem or database failure. The cause is kept for
// operator logs and never serialized to the caller.
func Storage(message string, err error) *Error {
	return &Error{Code: CodeStorage, Message: message, Err: err}
}

// Internal wraps any other system fault.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// From extracts an *Error from err, or classifies it as Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
