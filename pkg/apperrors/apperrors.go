package apperrors

import "fmt"

// Code classifies an error for the HTTP boundary.
type Code string

const (
	CodeInvalid         Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeInternal        Code = "INTERNAL"
)

// AppError carries a code, a caller-safe message and an optional cause.
// The cause is for logs only and never serialized to clients.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Invalid(msg string) *AppError         { return New(CodeInvalid, msg) }
func NotFound(msg string) *AppError        { return New(CodeNotFound, msg) }
func Conflict(msg string) *AppError        { return New(CodeConflict, msg) }
func Unauthenticated(msg string) *AppError { return New(CodeUnauthenticated, msg) }
func Internal(msg string) *AppError        { return New(CodeInternal, msg) }
