// Package clierr defines structured error types shared by the CLI, the
// remote client and the server. Errors carry a machine-readable code, a
// human-readable message, and optional details.
package clierr

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Error code constants: uppercase, underscore-separated, stable on the wire.
const (
	TaskNotFound      = "TASK_NOT_FOUND"
	BoardNotFound     = "BOARD_NOT_FOUND"
	BoardExists       = "BOARD_ALREADY_EXISTS"
	InvalidInput      = "INVALID_INPUT"
	InvalidStatus     = "INVALID_STATUS"
	InvalidColumn     = "INVALID_COLUMN"
	InvalidDate       = "INVALID_DATE"
	InvalidTaskID     = "INVALID_TASK_ID"
	WIPLimitExceeded  = "WIP_LIMIT_EXCEEDED"
	StatusConflict    = "STATUS_CONFLICT"
	NoChanges         = "NO_CHANGES"
	ConfirmationReq   = "CONFIRMATION_REQUIRED"
	Unauthorized      = "UNAUTHORIZED"
	RemoteUnavailable = "REMOTE_UNAVAILABLE"
	InternalError     = "INTERNAL_ERROR"
)

// Error represents a structured error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Details map[string]any

	// Cause is the underlying error, if any. Not sent over the wire.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Wrap creates an Error with the given code that wraps cause.
func Wrap(code string, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails returns the error with the given details map attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// ExitCode returns 2 for InternalError, 1 for all others.
func (e *Error) ExitCode() int {
	if e.Code == InternalError {
		return 2 //nolint:mnd // exit code 2 for internal errors
	}
	return 1
}

// CodeOf returns the code of the first *Error in err's chain, or
// InternalError when there is none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// HTTPStatus maps an error code to the status the server responds with.
func HTTPStatus(code string) int {
	switch code {
	case TaskNotFound, BoardNotFound:
		return http.StatusNotFound
	case InvalidInput, InvalidStatus, InvalidColumn, InvalidDate, InvalidTaskID, NoChanges:
		return http.StatusBadRequest
	case StatusConflict, WIPLimitExceeded, BoardExists:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	case RemoteUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// SilentError signals an exit code without additional output.
type SilentError struct {
	Code int
}

// Error implements the error interface.
func (e *SilentError) Error() string { return "exit " + strconv.Itoa(e.Code) }
