// Package errors provides the structured error type shared by every
// foundation package. Errors carry a machine-readable code so callers can
// tell configuration problems (bad driver, bad format, missing handle) apart
// from decoding and transport failures.
package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified foundation error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// UnsupportedDriver is returned when a concern selects a driver that has
// neither a custom nor a built-in factory.
func UnsupportedDriver(concern, driver string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupportedDriver,
		Message: fmt.Sprintf("driver %q is not supported for %s", driver, concern),
		Details: map[string]any{"concern": concern, "driver": driver},
	}
}

// UnsupportedFormat is returned for an unknown response output format.
func UnsupportedFormat(format string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupportedFormat,
		Message: fmt.Sprintf("unsupported conversion to %q", format),
		Details: map[string]any{"format": format},
	}
}

// MissingDependency is returned when a driver option must hold a live
// handle (for example a redis client) and does not.
func MissingDependency(concern, option, want string) *AppError {
	return &AppError{
		Code:    ErrCodeMissingDependency,
		Message: fmt.Sprintf("%s.%s must be a %s", concern, option, want),
		Details: map[string]any{"concern": concern, "option": option},
	}
}

// InvalidConfig wraps a configuration value that could not be used.
func InvalidConfig(key string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf("invalid configuration for %s", key),
		Details: map[string]any{"key": key},
		Cause:   cause,
	}
}

// DecodeFailed is returned by strict response formats when the body cannot be parsed.
func DecodeFailed(format string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeDecoding,
		Message: fmt.Sprintf("cannot decode response as %s", format),
		Details: map[string]any{"format": format},
		Cause:   cause,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// ListenerFailed wraps the joined errors of failing event listeners.
func ListenerFailed(event string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeListenerFailed,
		Message: fmt.Sprintf("listeners for %s failed", event),
		Details: map[string]any{"event": event},
		Cause:   cause,
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "unexpected failure", Cause: cause}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsConfiguration reports whether err belongs to the configuration class.
func IsConfiguration(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && IsConfigurationCode(appErr.Code)
}

// IsDecoding reports whether err is a strict decoding failure.
func IsDecoding(err error) bool {
	return HasCode(err, ErrCodeDecoding)
}
