package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"

	// Storage errors (STORAGE_*)
	ErrorCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"

	// Payment gateway errors (GATEWAY_*)
	ErrorCodeGatewayDeclined ErrorCode = "GATEWAY_DECLINED"
	ErrorCodeGatewayTimeout  ErrorCode = "GATEWAY_TIMEOUT"
	ErrorCodeGatewayError    ErrorCode = "GATEWAY_ERROR"

	// Payment lifecycle errors (PAYMENT_*)
	ErrorCodeInvalidTransition ErrorCode = "PAYMENT_INVALID_TRANSITION"
	ErrorCodeAlreadyTerminal   ErrorCode = "PAYMENT_ALREADY_TERMINAL"

	// Order errors (ORDER_*)
	ErrorCodeOrderNotFound ErrorCode = "ORDER_NOT_FOUND"

	// Step-up errors (STEPUP_*)
	ErrorCodeChallengeNotFound  ErrorCode = "STEPUP_CHALLENGE_NOT_FOUND"
	ErrorCodeChallengeAbandoned ErrorCode = "STEPUP_CHALLENGE_ABANDONED"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of the error with the detail field added.
// The receiver is left untouched: the shared error instances below are
// handed out concurrently, and their Details maps must never be written.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value

	return &DomainError{
		Err:     e.Err,
		Details: details,
		Code:    e.Code,
		Message: e.Message,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationMissingField ||
		code == ErrorCodeValidationAmountInvalid
}

// IsGatewayTimeout reports whether the gateway's true decision is unknown.
// Timeouts are never conflated with declines: a decline is final, a timeout
// requires a compensating reversal.
func IsGatewayTimeout(err error) bool {
	return GetErrorCode(err) == ErrorCodeGatewayTimeout
}

// IsStorageUnavailable checks whether trace allocation or persistence failed closed
func IsStorageUnavailable(err error) bool {
	return GetErrorCode(err) == ErrorCodeStorageUnavailable
}

// Structured error instances
var (
	ErrValidationFailed        = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationMissingField  = NewDomainError(ErrorCodeValidationMissingField, "required field missing")
	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")

	ErrStorageUnavailable = NewDomainError(ErrorCodeStorageUnavailable, "storage unavailable")

	ErrGatewayDeclined = NewDomainError(ErrorCodeGatewayDeclined, "payment declined by gateway")
	ErrGatewayTimedOut = NewDomainError(ErrorCodeGatewayTimeout, "payment gateway timeout")
	ErrGatewayError    = NewDomainError(ErrorCodeGatewayError, "payment gateway error")

	ErrInvalidTransition = NewDomainError(ErrorCodeInvalidTransition, "payment state transition not allowed")
	ErrAlreadyTerminal   = NewDomainError(ErrorCodeAlreadyTerminal, "order is not in an eligible state for compensation")

	ErrOrderNotFound = NewDomainError(ErrorCodeOrderNotFound, "order not found")

	ErrChallengeNotFound  = NewDomainError(ErrorCodeChallengeNotFound, "step-up challenge not found")
	ErrChallengeAbandoned = NewDomainError(ErrorCodeChallengeAbandoned, "step-up challenge abandoned")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal error")
)
