// Package core holds the shared error taxonomy for Resumaster sessions.
package core

import (
	"fmt"
)

// Error represents a session or API error.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.cause
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrPermissionDenied means microphone access was refused. Fatal to
	// the session.
	ErrPermissionDenied ErrorType = "permission_denied"
	// ErrDeviceUnavailable means an audio device could not be constructed.
	// Fatal to the session.
	ErrDeviceUnavailable ErrorType = "device_unavailable"
	// ErrTransportOpenFailed means the remote live session could not be
	// established. Fatal.
	ErrTransportOpenFailed ErrorType = "transport_open_failed"
	// ErrTransportRuntime means the remote signaled an error mid-session.
	// Fatal; buffered outbound audio is discarded.
	ErrTransportRuntime ErrorType = "transport_runtime_error"
	// ErrInvalidRequest covers malformed caller input.
	ErrInvalidRequest ErrorType = "invalid_request_error"
	// ErrAPI covers generic upstream API failures.
	ErrAPI ErrorType = "api_error"
	// ErrNotFound covers missing records.
	ErrNotFound ErrorType = "not_found_error"
)

// NewPermissionDeniedError creates a microphone-refused error.
func NewPermissionDeniedError(message string) *Error {
	return &Error{Type: ErrPermissionDenied, Message: message}
}

// NewDeviceUnavailableError creates an audio-device construction error.
func NewDeviceUnavailableError(message string, cause error) *Error {
	return &Error{Type: ErrDeviceUnavailable, Message: message, cause: cause}
}

// NewTransportOpenFailedError creates a session-establishment error.
func NewTransportOpenFailedError(message string, cause error) *Error {
	return &Error{Type: ErrTransportOpenFailed, Message: message, cause: cause}
}

// NewTransportRuntimeError creates a mid-session remote error.
func NewTransportRuntimeError(message string, cause error) *Error {
	return &Error{Type: ErrTransportRuntime, Message: message, cause: cause}
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string) *Error {
	return &Error{Type: ErrAPI, Message: message}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{Type: ErrNotFound, Message: message}
}

// IsFatalToSession reports whether the error must converge on the Error
// state with full resource teardown. Non-fatal conditions (dropped sends,
// per-frame decode failures) are absorbed locally and never reach here.
func (e *Error) IsFatalToSession() bool {
	switch e.Type {
	case ErrPermissionDenied, ErrDeviceUnavailable, ErrTransportOpenFailed, ErrTransportRuntime:
		return true
	default:
		return false
	}
}
