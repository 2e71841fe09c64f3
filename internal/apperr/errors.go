// Package apperr defines the error taxonomy shared by the service and view-model layers.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an application error
type Code int

const (
	CodeInternal Code = 1000 + iota
	CodeValidation
	CodeUsernameTaken
	CodeAuth
	CodeSessionExpired
	CodeBackendRequest
	CodeNotFound
)

func (c Code) String() string {
	switch c {
	case CodeValidation:
		return "validation"
	case CodeUsernameTaken:
		return "username_taken"
	case CodeAuth:
		return "auth"
	case CodeSessionExpired:
		return "session_expired"
	case CodeBackendRequest:
		return "backend_request"
	case CodeNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is an application error carrying a code, a human readable message
// and optionally the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrUsernameTaken  = &Error{Code: CodeUsernameTaken, Message: "username already exists"}
	ErrAuth           = &Error{Code: CodeAuth, Message: "authentication failed"}
	ErrSessionExpired = &Error{Code: CodeSessionExpired, Message: "session expired"}
	ErrBackendRequest = &Error{Code: CodeBackendRequest, Message: "backend request failed"}
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
)

// New creates an error without a cause
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps err with a code and message
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Backend wraps a failed backend request. Errors that already carry a code are
// returned unchanged.
func Backend(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Code: CodeBackendRequest, Err: err}
}

// CodeOf returns the code of err, CodeInternal when err carries none
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}
