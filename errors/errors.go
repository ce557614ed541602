// Package errors defines the error taxonomy for the SofizPay SDK.
//
// All SDK errors are represented as SDKError, which provides:
//   - Code: Machine-readable error identifier
//   - Message: Human-readable error description
//   - Layer: Which component layer produced the error (core, horizon, stream, sdk)
//   - Cause: Underlying error, if any
//   - Context: Additional error details (account address, transaction hash, etc.)
//
// Use the provided constructor functions (NewCoreError, NewHorizonError, etc.)
// to create properly typed errors with automatic layer assignment. Validation
// errors are the only errors the facade returns directly to callers; every
// other failure is normalized into a result envelope.
package errors

import "fmt"

// Code is a machine-readable error identifier.
type Code string

// Error codes - Core Layer
const (
	NETWORK_ERROR   Code = "NETWORK_ERROR"
	RATE_LIMITED    Code = "RATE_LIMITED"
	RETRY_EXHAUSTED Code = "RETRY_EXHAUSTED"
	CIRCUIT_OPEN    Code = "CIRCUIT_OPEN"
)

// Error codes - Horizon Layer
const (
	ACCOUNT_NOT_FOUND    Code = "ACCOUNT_NOT_FOUND"
	INVALID_SECRET_KEY   Code = "INVALID_SECRET_KEY"
	INVALID_PUBLIC_KEY   Code = "INVALID_PUBLIC_KEY"
	SUBMISSION_REJECTED  Code = "SUBMISSION_REJECTED"
	TX_NOT_FOUND         Code = "TX_NOT_FOUND"
	OPERATION_FETCH_FAIL Code = "OPERATION_FETCH_FAIL"
)

// Error codes - Stream Layer
const (
	STREAM_ERROR     Code = "STREAM_ERROR"
	STREAM_CLOSED    Code = "STREAM_CLOSED"
	BACKFILL_FAILED  Code = "BACKFILL_FAILED"
	HANDLER_PANIC    Code = "HANDLER_PANIC"
	INVALID_INTERVAL Code = "INVALID_INTERVAL"
)

// Error codes - SDK Layer
const (
	VALIDATION_REQUIRED   Code = "VALIDATION_REQUIRED"
	CONFIG_INVALID        Code = "CONFIG_INVALID"
	STREAM_ALREADY_ACTIVE Code = "STREAM_ALREADY_ACTIVE"
	STREAM_NOT_FOUND      Code = "STREAM_NOT_FOUND"
)

// SDKError is the base error type for all SDK errors.
type SDKError struct {
	Code    Code
	Message string
	Layer   string // "core", "horizon", "stream", "sdk"
	Cause   error
	Context map[string]any
}

// Error returns a formatted error string.
func (e *SDKError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Layer, e.Code, e.Message)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error, enabling error chain inspection.
func (e *SDKError) Unwrap() error {
	return e.Cause
}

// NewCoreError creates a core layer error.
func NewCoreError(code Code, message string, cause error) *SDKError {
	return &SDKError{
		Code:    code,
		Message: message,
		Layer:   "core",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// NewHorizonError creates a horizon layer error.
func NewHorizonError(code Code, message string, cause error) *SDKError {
	return &SDKError{
		Code:    code,
		Message: message,
		Layer:   "horizon",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// NewStreamError creates a stream layer error.
func NewStreamError(code Code, message string, cause error) *SDKError {
	return &SDKError{
		Code:    code,
		Message: message,
		Layer:   "stream",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// NewSDKError creates an sdk layer error.
func NewSDKError(code Code, message string, cause error) *SDKError {
	return &SDKError{
		Code:    code,
		Message: message,
		Layer:   "sdk",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// Is checks if the target error is an SDKError with the same code.
func (e *SDKError) Is(target error) bool {
	if target == nil {
		return false
	}
	other, ok := target.(*SDKError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// As checks if target is an SDKError and assigns it.
func As(err error, target **SDKError) bool {
	if err == nil {
		return false
	}
	if v, ok := err.(*SDKError); ok {
		*target = v
		return true
	}
	return false
}
