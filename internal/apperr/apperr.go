// Package apperr defines the error taxonomy shared by services, repositories
// and the HTTP layer. Repositories translate driver errors into these codes at
// the storage boundary; handlers translate codes into HTTP statuses.
package apperr

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodeInvalidInput Code = "invalid_input"
	CodeInvalidState Code = "invalid_state"
	CodeInternal     Code = "internal"
)

// Error is a coded error with an optional detail payload that is merged into
// the JSON error body (conflict responses carry the blocking application's id
// and status this way).
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *Error) Error() string { return e.Message }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails attaches extra fields to the error body.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// NotFound is shorthand for a CodeNotFound error.
func NotFound(message string) *Error { return New(CodeNotFound, message) }

// Invalid is shorthand for a CodeInvalidInput error.
func Invalid(message string) *Error { return New(CodeInvalidInput, message) }

// From extracts an *Error when err carries one.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps an error to its response status. Unknown errors are treated
// as internal.
func HTTPStatus(err error) int {
	e, ok := From(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidInput, CodeInvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
