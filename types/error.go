package types

import "fmt"

// ErrorCode represents a unified error code across the crewdeck core.
type ErrorCode string

const (
	// ErrNotFound: an agent, task or crew name did not resolve.
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrValidation: a precondition failed (tool-less agent, missing topic).
	ErrValidation ErrorCode = "VALIDATION_FAILURE"
	// ErrEngine: the external agent-execution engine failed.
	ErrEngine ErrorCode = "ENGINE_FAILURE"
	// ErrEvaluation: an evaluation tier failed (recovered by the next tier).
	ErrEvaluation ErrorCode = "EVALUATION_FAILURE"
	// ErrPersistence: a durable-storage write failed.
	ErrPersistence ErrorCode = "PERSISTENCE_FAILURE"
)

// Error is a structured error with a code, message and optional cause.
// Public operations recover these locally and surface zero values plus a
// logged reason; Error values cross package boundaries, never panics.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the error code from an error, or "" if it is not
// a *types.Error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
