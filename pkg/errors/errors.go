// Package errors defines the error taxonomy shared by the engine, the
// algorithms and the application layer.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown              = "UNKNOWN_ERROR"
	CodeInvalidConfig        = "INVALID_CONFIG"
	CodeIndexOutOfRange      = "INDEX_OUT_OF_RANGE"
	CodeCapacityExceeded     = "CAPACITY_EXCEEDED"
	CodeResourceReleased     = "RESOURCE_RELEASED"
	CodeTaskPanic            = "TASK_PANIC"
	CodeParseError           = "PARSE_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeUnsupportedAlgorithm = "UNSUPPORTED_ALGORITHM"
	CodeDatabaseError        = "DATABASE_ERROR"
	CodeUploadError          = "UPLOAD_ERROR"
	CodeDownloadError        = "DOWNLOAD_ERROR"
	CodeConfigError          = "CONFIG_ERROR"
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

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Sentinel instances used with errors.Is.
var (
	ErrInvalidConfig        = New(CodeInvalidConfig, "invalid configuration")
	ErrIndexOutOfRange      = New(CodeIndexOutOfRange, "index out of range")
	ErrCapacityExceeded     = New(CodeCapacityExceeded, "capacity exceeded")
	ErrResourceReleased     = New(CodeResourceReleased, "resource already released")
	ErrTaskPanic            = New(CodeTaskPanic, "task panicked")
	ErrParseError           = New(CodeParseError, "parse error")
	ErrNotFound             = New(CodeNotFound, "resource not found")
	ErrUnsupportedAlgorithm = New(CodeUnsupportedAlgorithm, "unsupported algorithm")
	ErrDatabaseError        = New(CodeDatabaseError, "database error")
	ErrUploadError          = New(CodeUploadError, "upload error")
	ErrDownloadError        = New(CodeDownloadError, "download error")
	ErrConfigError          = New(CodeConfigError, "configuration error")
)

// InvalidConfig returns a validation failure for a run parameter.
func InvalidConfig(format string, args ...interface{}) *AppError {
	return Newf(CodeInvalidConfig, format, args...)
}

// IndexOutOfRange describes an access outside [0, size).
func IndexOutOfRange(index, size int64) *AppError {
	return Newf(CodeIndexOutOfRange, "index %d out of range [0, %d)", index, size)
}

// CapacityExceeded describes a requested size beyond limit.
func CapacityExceeded(what string, requested, limit int64) *AppError {
	return Newf(CodeCapacityExceeded, "%s: requested %d exceeds limit %d", what, requested, limit)
}

// IsInvalidConfig checks if the error is a configuration validation failure.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsCapacityExceeded checks if the error is a capacity fault.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsNotFound checks if the error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDatabaseError checks if the error is a database error.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabaseError)
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
