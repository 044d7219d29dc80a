package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeInvalidState         = "INVALID_STATE"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeInsufficientResource = "INSUFFICIENT_RESOURCE"
	ErrCodeAlreadyExists        = "ALREADY_EXISTS"
	ErrCodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
)

func Validation(format string, args ...interface{}) *AppError {
	return Newf(ErrCodeValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *AppError {
	return Newf(ErrCodeNotFound, format, args...)
}

func InvalidState(format string, args ...interface{}) *AppError {
	return Newf(ErrCodeInvalidState, format, args...)
}

func Insufficient(format string, args ...interface{}) *AppError {
	return Newf(ErrCodeInsufficientResource, format, args...)
}

// Internal wraps a store or transport failure. Callers surface it as a
// generic failure.
func Internal(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternalError, message)
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternalError for any other non-nil error.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf returns the user-facing message of an AppError. Non-app errors
// are hidden behind a generic message.
func MessageOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Code != ErrCodeInternalError {
		return appErr.Message
	}
	return "an internal error occurred, please try again"
}

// AsAppError passes AppErrors through and wraps anything else as internal.
func AsAppError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return Internal(err, message)
}
