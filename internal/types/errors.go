package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for orchestrator errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Registry error codes
const (
	REGISTRY_OPEN_FAILED      ErrorCode = "REGISTRY_OPEN_FAILED"
	REGISTRY_MIGRATION_FAILED ErrorCode = "REGISTRY_MIGRATION_FAILED"
	REGISTRY_QUERY_FAILED     ErrorCode = "REGISTRY_QUERY_FAILED"
	REGISTRY_CORRUPT          ErrorCode = "REGISTRY_CORRUPT"
	INSTANCE_NOT_FOUND        ErrorCode = "INSTANCE_NOT_FOUND"
	INSTANCE_INVALID          ErrorCode = "INSTANCE_INVALID"
	INVALID_STATUS_TRANSITION ErrorCode = "INVALID_STATUS_TRANSITION"
)

// Port allocation error codes
const (
	PORTS_EXHAUSTED ErrorCode = "PORTS_EXHAUSTED"
)

// Container engine error codes
const (
	RUNTIME_UNAVAILABLE ErrorCode = "RUNTIME_UNAVAILABLE"
	IMAGE_PULL_FAILED   ErrorCode = "IMAGE_PULL_FAILED"
	PORT_BIND_FAILED    ErrorCode = "PORT_BIND_FAILED"
	CONTAINER_FAILED    ErrorCode = "CONTAINER_FAILED"
	INSTANCE_NOT_READY  ErrorCode = "INSTANCE_NOT_READY"
)

// Ingestion error codes
const (
	ONTOLOGY_INVALID ErrorCode = "ONTOLOGY_INVALID"
	DATASET_INVALID  ErrorCode = "DATASET_INVALID"
	INGEST_ABORTED   ErrorCode = "INGEST_ABORTED"
)

// KGError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type KGError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *KGError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *KGError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *KGError) Is(target error) bool {
	var kgErr *KGError
	if errors.As(target, &kgErr) {
		return e.Code == kgErr.Code
	}
	return false
}

// NewError creates a new non-retryable KGError with the given code and message.
func NewError(code ErrorCode, message string) *KGError {
	return &KGError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a new retryable KGError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., a port pair
// grabbed by an external process between allocation and container start).
func NewRetryableError(code ErrorCode, message string) *KGError {
	return &KGError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapError creates a new non-retryable KGError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *KGError {
	return &KGError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapRetryableError creates a retryable KGError that wraps an existing error.
func WrapRetryableError(code ErrorCode, message string, cause error) *KGError {
	return &KGError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// IsRetryable reports whether err carries a retryable KGError.
func IsRetryable(err error) bool {
	var kgErr *KGError
	if errors.As(err, &kgErr) {
		return kgErr.Retryable
	}
	return false
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a KGError.
func CodeOf(err error) ErrorCode {
	var kgErr *KGError
	if errors.As(err, &kgErr) {
		return kgErr.Code
	}
	return ""
}
