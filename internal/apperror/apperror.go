// Package apperror provides client-facing error types with HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a client-facing error.
type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindAuthorization
	KindInvalidRequest
	KindNotFound
)

var defaultMessages = map[Kind]string{
	KindAuthentication: "Authentication failed",
	KindAuthorization:  "Authorization failed",
	KindInvalidRequest: "Invalid request",
	KindNotFound:       "Resource not found",
}

var statusCodes = map[Kind]int{
	KindAuthentication: http.StatusUnauthorized,
	KindAuthorization:  http.StatusForbidden,
	KindInvalidRequest: http.StatusBadRequest,
	KindNotFound:       http.StatusNotFound,
}

// Error is an error that is safe to show to the client. Message goes to the
// client, Fields only go to the logs.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]interface{}
	Err     error
}

func newError(kind Kind, message string, fields map[string]interface{}) *Error {
	if message == "" {
		message = defaultMessages[kind]
	}
	return &Error{Kind: kind, Message: message, Fields: fields}
}

// Authentication creates a 401 error.
func Authentication(message string, fields map[string]interface{}) *Error {
	return newError(KindAuthentication, message, fields)
}

// Authorization creates a 403 error.
func Authorization(message string, fields map[string]interface{}) *Error {
	return newError(KindAuthorization, message, fields)
}

// InvalidRequest creates a 400 error.
func InvalidRequest(message string, fields map[string]interface{}) *Error {
	return newError(KindInvalidRequest, message, fields)
}

// NotFound creates a 404 error.
func NotFound(message string, fields map[string]interface{}) *Error {
	return newError(KindNotFound, message, fields)
}

// Wrap attaches an underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP Error %d: %s: %v", e.StatusCode(), e.Message, e.Err)
	}
	return fmt.Sprintf("HTTP Error %d: %s", e.StatusCode(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code for the error kind.
func (e *Error) StatusCode() int {
	if code, ok := statusCodes[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// IsAuthentication checks if err is an authentication error.
func IsAuthentication(err error) bool { return is(err, KindAuthentication) }

// IsAuthorization checks if err is an authorization error.
func IsAuthorization(err error) bool { return is(err, KindAuthorization) }

// IsInvalidRequest checks if err is an invalid request error.
func IsInvalidRequest(err error) bool { return is(err, KindInvalidRequest) }

// IsNotFound checks if err is a not found error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// StatusCode returns the status code for any error, 500 for unknown ones.
func StatusCode(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}
