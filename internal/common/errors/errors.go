// Package errors provides the standardized error type shared by the wizard,
// its collaborators and the HTTP host.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Wizard validation
	ErrCodeMissingField  ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// Collaborator failures
	ErrCodeAnalysisUnavailable ErrorCode = "ANALYSIS_UNAVAILABLE"
	ErrCodeDeliveryFailed      ErrorCode = "DELIVERY_FAILED"

	// State machine / host
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeSubmissionPending ErrorCode = "SUBMISSION_PENDING"
	ErrCodeSessionNotFound   ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if one was attached.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns the error after merging the given key/value pairs.
func (e *StandardError) WithMetadata(kv map[string]interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{}, len(kv))
	}
	for k, v := range kv {
		e.Metadata[k] = v
	}
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewAnalysisUnavailableError wraps a score generator failure.
func NewAnalysisUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalysisUnavailable,
		Message:   "Match analysis unavailable",
		Details:   errString(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDeliveryFailedError wraps an email dispatch failure.
func NewDeliveryFailedError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Email delivery failed",
		Details:   fmt.Sprintf("provider: %s, error: %s", provider, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInvalidTransitionError(from, action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Action not allowed in current step",
		Details:   fmt.Sprintf("step: %s, action: %s", from, action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionPendingError rejects a second email submit while one is in flight.
func NewSubmissionPendingError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionPending,
		Message:   "Email submission already in progress",
		Details:   errString(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewSessionNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Wizard session not found",
		Details:   fmt.Sprintf("sessionId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// HTTPStatusMapping maps error codes to HTTP status codes.
var HTTPStatusMapping = map[ErrorCode]int{
	ErrCodeMissingField:        http.StatusUnprocessableEntity,
	ErrCodeInvalidFormat:       http.StatusUnprocessableEntity,
	ErrCodeAnalysisUnavailable: http.StatusServiceUnavailable,
	ErrCodeDeliveryFailed:      http.StatusBadGateway,
	ErrCodeInvalidTransition:   http.StatusConflict,
	ErrCodeSubmissionPending:   http.StatusConflict,
	ErrCodeSessionNotFound:     http.StatusNotFound,
	ErrCodeInvalidRequest:      http.StatusBadRequest,
	ErrCodeInternal:            http.StatusInternalServerError,
}

// HTTPStatus returns the status code for an error code, 500 when unknown.
func HTTPStatus(code ErrorCode) int {
	if status, ok := HTTPStatusMapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeMissingField || code == ErrCodeInvalidFormat || strings.Contains(codeStr, "REQUEST"):
		return "VALIDATION"
	case code == ErrCodeAnalysisUnavailable || code == ErrCodeDeliveryFailed:
		return "COLLABORATOR"
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "PENDING"):
		return "STATE"
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	default:
		return "OTHER"
	}
}
