// Package errors provides standardized error handling for the campaign core.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeAuthRequired     ErrorCode = "AUTH_REQUIRED"
	ErrCodeNotOwner         ErrorCode = "NOT_OWNER"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"

	ErrCodeCryptoFailed       ErrorCode = "CRYPTO_FAILED"
	ErrCodeNotConfigured      ErrorCode = "INTEGRATION_NOT_CONFIGURED"
	ErrCodeInvalidPhoneNumber ErrorCode = "INVALID_PHONE_NUMBER"

	ErrCodeProviderFailed  ErrorCode = "PROVIDER_FAILED"
	ErrCodeProviderTimeout ErrorCode = "PROVIDER_TIMEOUT"

	ErrCodeDatabaseFailed ErrorCode = "DATABASE_FAILED"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Fields    []FieldError           `json:"fields,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable validation error with
// field-level detail. It is always a local, immediate rejection.
func NewValidationError(message string, fields []FieldError) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Fields:    fields,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthRequiredError creates a non-retryable missing-session error.
func NewAuthRequiredError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthRequired,
		Message:   "Authentication required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotOwnerError creates a non-retryable ownership error.
func NewNotOwnerError(resource string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotOwner,
		Message:   "Caller does not own this resource",
		Details:   resource,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictError creates a non-retryable illegal-state-transition error.
func NewConflictError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable unknown-id error scoped to the caller.
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCryptoError creates a non-retryable decrypt/tamper error. It is fatal
// for the operation and must never be silently ignored.
func NewCryptoError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCryptoFailed,
		Message:   "Credential decryption failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotConfiguredError creates a non-retryable missing-integration error.
func NewNotConfiguredError(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotConfigured,
		Message:   fmt.Sprintf("%s integration not configured", provider),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPhoneError creates a non-retryable per-record phone error.
// It does not consume a dispatch retry.
func NewInvalidPhoneError(phone string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPhoneNumber,
		Message:   "invalid phone number",
		Details:   phone,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderError creates a retryable third-party API error.
func NewProviderError(provider string, statusCode int, err error) *StandardError {
	details := fmt.Sprintf("status: %d", statusCode)
	if err != nil {
		details = fmt.Sprintf("status: %d, error: %s", statusCode, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeProviderFailed,
		Message:   fmt.Sprintf("Provider '%s' call failed", provider),
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"provider": provider, "statusCode": statusCode},
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderTimeoutError creates a retryable provider timeout error.
func NewProviderTimeoutError(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   fmt.Sprintf("Provider '%s' timeout", provider),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseError creates a retryable persistence error.
func NewDatabaseError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseFailed,
		Message:   "Database operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard extracts a *StandardError from err, wrapping unknown errors
// as INTERNAL_ERROR so callers always have a code to act on.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// IsRetryable reports whether a dispatch attempt may be retried after err.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}
