// Package errors provides a unified, structured error type shared across
// the capture, render, and sink layers.
package errors

import "fmt"

// ErrorCode classifies an AppError along the taxonomy the pipeline
// distinguishes between for retry and exit-status decisions.
type ErrorCode int

const (
	Unknown ErrorCode = iota
	Internal
	InvalidArgument
	NotFound
	Unavailable
	Timeout
	Cancelled

	// CaptureTransient marks a capture tick that returned no frame; the
	// orchestrator skips the tick and continues.
	CaptureTransient
	// DisplayNotFound marks a startup failure: the requested capture
	// source does not exist.
	DisplayNotFound
	// ResourceExhausted marks a sink write failure or a history budget
	// that cannot fit even the newest frame.
	ResourceExhausted
	// ContractViolation marks a programmer error: multiple producers on
	// an SPSC ring, comparing mismatched image sizes, and similar.
	ContractViolation
	// ConfigInvalid marks a malformed configuration value.
	ConfigInvalid
	// ConfigMissing marks a required configuration value that was not
	// supplied.
	ConfigMissing
	// StaticGateTimeout marks the preflight static-scene wait expiring
	// without the scene settling.
	StaticGateTimeout
)

func (c ErrorCode) String() string {
	switch c {
	case Internal:
		return "internal"
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case Unavailable:
		return "unavailable"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	case CaptureTransient:
		return "capture_transient"
	case DisplayNotFound:
		return "display_not_found"
	case ResourceExhausted:
		return "resource_exhausted"
	case ContractViolation:
		return "contract_violation"
	case ConfigInvalid:
		return "config_invalid"
	case ConfigMissing:
		return "config_missing"
	case StaticGateTimeout:
		return "static_gate_timeout"
	default:
		return "unknown"
	}
}

// AppError is the pipeline's structured error type: a code, a message,
// optional key/value metadata, and an optional wrapped cause.
type AppError struct {
	Code     ErrorCode
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError, returning it for chaining.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// IsRetryable reports whether the error is worth retrying. Only
// conditions believed to be transient qualify.
func IsRetryable(err error) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	switch appErr.Code {
	case Unavailable, Timeout, ResourceExhausted, CaptureTransient:
		return true
	default:
		return false
	}
}
