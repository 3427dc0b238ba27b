// Package errors holds the error helpers shared by the HTTP layer and
// the service packages.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// WrapWithContext prefixes err with context. A nil err stays nil.
func WrapWithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// WrapWithContextf is WrapWithContext with a format string.
func WrapWithContextf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// HTTPError is an error that knows the HTTP status it should be reported with.
// Message is safe to show to clients; Err is logged but never serialized.
type HTTPError struct {
	StatusCode int
	Message    string
	Details    []string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// BadRequest reports a client input problem.
func BadRequest(message string, details ...string) *HTTPError {
	return &HTTPError{StatusCode: http.StatusBadRequest, Message: message, Details: details}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *HTTPError {
	return &HTTPError{StatusCode: http.StatusUnauthorized, Message: message}
}

// Forbidden reports an authenticated caller acting outside its scope.
func Forbidden(message string) *HTTPError {
	return &HTTPError{StatusCode: http.StatusForbidden, Message: message}
}

// NotFound reports a missing resource.
func NotFound(message string) *HTTPError {
	return &HTTPError{StatusCode: http.StatusNotFound, Message: message}
}

// Internal wraps an unexpected failure behind a generic message.
func Internal(message string, err error) *HTTPError {
	return &HTTPError{StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

// StatusCode returns the status carried by err, or 500.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return http.StatusInternalServerError
}
