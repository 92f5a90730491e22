// Package errors defines the coded application errors surfaced by the CLI.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown       = "UNKNOWN_ERROR"
	CodeInvalidFormat = "INVALID_FORMAT"
	CodeTruncated     = "TRUNCATED"
	CodeLayoutError   = "LAYOUT_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeIOError       = "IO_ERROR"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeConfigError   = "CONFIG_ERROR"
	CodeDatabaseError = "DATABASE_ERROR"
	CodeStorageError  = "STORAGE_ERROR"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Common error instances, for errors.Is comparisons by code.
var (
	ErrInvalidFormat = New(CodeInvalidFormat, "invalid cache format")
	ErrTruncated     = New(CodeTruncated, "truncated cache")
	ErrLayoutError   = New(CodeLayoutError, "record layout violation")
	ErrNotFound      = New(CodeNotFound, "class not found")
	ErrIOError       = New(CodeIOError, "i/o error")
	ErrInvalidInput  = New(CodeInvalidInput, "invalid input")
	ErrConfigError   = New(CodeConfigError, "configuration error")
	ErrDatabaseError = New(CodeDatabaseError, "database error")
	ErrStorageError  = New(CodeStorageError, "storage error")
)

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// ExitCode maps an error to a process exit status: 0 for nil, 2 for a missing
// class and 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsNotFound(err):
		return 2
	default:
		return 1
	}
}
