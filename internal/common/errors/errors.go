// Package errors provides standardized error handling for the gateway.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeNetworkError      ErrorCode = "NETWORK_ERROR"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
	ErrCodeUpstreamHTTPError ErrorCode = "UPSTREAM_HTTP_ERROR"
	ErrCodeInternalFault     ErrorCode = "INTERNAL_FAULT"
	ErrCodeStreamInterrupted ErrorCode = "STREAM_INTERRUPTED"

	ErrCodeCatalogLoadFailed ErrorCode = "CATALOG_LOAD_FAILED"
	ErrCodeInvalidRecord     ErrorCode = "INVALID_RECORD"
	ErrCodeConfigInvalid     ErrorCode = "CONFIG_INVALID"
)

// InternalErrorText is the fixed body of every 500 response.
const InternalErrorText = "500 - Internal Error Occurred"

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns the error with one metadata entry added.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// Constructors
// ==========================

// NewNotFoundError reports a lookup of an id absent from a collection.
func NewNotFoundError(kind, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Resource not found",
		Details:   fmt.Sprintf("kind: %s, id: %s", kind, id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNetworkError wraps a transport failure (refused, DNS, TLS).
func NewNetworkError(target string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetworkError,
		Message:   "Transport failure",
		Details:   fmt.Sprintf("target: %s, error: %s", target, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewTimeoutError reports a sub-request that exceeded its deadline.
func NewTimeoutError(target string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   TimeoutMessage(timeout),
		Details:   fmt.Sprintf("target: %s", target),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamHTTPError reports a non-2xx response from a target.
func NewUpstreamHTTPError(target string, status int) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamHTTPError,
		Message:   fmt.Sprintf("Upstream responded with status %d", status),
		Details:   fmt.Sprintf("target: %s", target),
		Retryable: status >= 500,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalFaultError wraps an unexpected failure in the gateway itself.
func NewInternalFaultError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeInternalFault,
		Message:   "Unexpected error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewStreamInterruptedError reports a body that failed after bytes were forwarded.
func NewStreamInterruptedError(target string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStreamInterrupted,
		Message:   "Stream interrupted after output started",
		Details:   fmt.Sprintf("target: %s, error: %s", target, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewCatalogLoadFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogLoadFailed,
		Message:   fmt.Sprintf("Catalog source '%s' failed to load", source),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInvalidRecordError(kind, id, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRecord,
		Message:   "Record failed validation",
		Details:   fmt.Sprintf("kind: %s, id: %s, %s", kind, id, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewConfigInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Utility Functions
// ==========================

// TimeoutMessage is the client-visible text of a timed out sub-request.
func TimeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("timeout of %dms exceeded", timeout.Milliseconds())
}

// CodeOf returns the code of a StandardError anywhere in err's chain, or
// INTERNAL_FAULT.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternalFault
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeNetworkError, ErrCodeTimeout, ErrCodeCatalogLoadFailed:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "LOOKUP"
	case strings.Contains(codeStr, "NETWORK") || strings.Contains(codeStr, "TIMEOUT"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "UPSTREAM") || strings.Contains(codeStr, "STREAM"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "CATALOG") || strings.Contains(codeStr, "RECORD"):
		return "CATALOG"
	case strings.Contains(codeStr, "CONFIG"):
		return "CONFIG"
	default:
		return "OTHER"
	}
}
