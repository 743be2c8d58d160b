// Package errors provides the structured error taxonomy shared by the dialog engine,
// the booking steps, the scheduling client and the state stores.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeStateNotFound         ErrorCode = "STATE_NOT_FOUND"
	ErrCodeEntityNotFound        ErrorCode = "ENTITY_NOT_FOUND"
	ErrCodeProviderRequestFailed ErrorCode = "PROVIDER_REQUEST_FAILED"

	ErrCodeDialogNotFound  ErrorCode = "DIALOG_NOT_FOUND"
	ErrCodeDuplicateDialog ErrorCode = "DUPLICATE_DIALOG"

	ErrCodeStateStorageFailed ErrorCode = "STATE_STORAGE_FAILED"
	ErrCodeInvalidActivity    ErrorCode = "INVALID_ACTIVITY"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
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
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another *StandardError by code, so sentinel-style comparisons work:
//
//	errors.Is(err, &StandardError{Code: ErrCodeStateNotFound})
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key/value pair and returns the receiver.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewStateNotFoundError reports a run-scoped value or profile field that an earlier step
// should have set.
func NewStateNotFoundError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateNotFound,
		Message:   "Required conversation state is missing",
		Details:   fmt.Sprintf("name: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEntityNotFoundError reports an empty provider response for an entity.
func NewEntityNotFoundError(entity, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEntityNotFound,
		Message:   "Entity not found",
		Details:   fmt.Sprintf("entity: %s, id: %s", entity, id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderRequestFailedError reports a failed call to the scheduling provider.
func NewProviderRequestFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderRequestFailed,
		Message:   "Scheduling provider request failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewDialogNotFoundError(dialogID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDialogNotFound,
		Message:   "Dialog is not registered",
		Details:   fmt.Sprintf("dialogId: %s", dialogID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDuplicateDialogError(dialogID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateDialog,
		Message:   "Dialog is already registered",
		Details:   fmt.Sprintf("dialogId: %s", dialogID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateStorageFailedError wraps a storage driver failure.
func NewStateStorageFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateStorageFailed,
		Message:   "State storage operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInvalidActivityError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidActivity,
		Message:   "Inbound activity is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification could not be sent",
		Details:   fmt.Sprintf("channel: %s, error: %v", channel, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Helpers
// ==========================

// AsStandardError returns the first *StandardError in err's chain, or wraps err as an
// internal error.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// CodeOf returns the error code of err, INTERNAL_ERROR for foreign errors and "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsStandardError(err).Code
}

// GetErrorCategory groups error codes for logging and metrics.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DIALOG"):
		return "configuration"
	case strings.HasPrefix(codeStr, "STATE_NOT_FOUND"):
		return "state"
	case strings.Contains(codeStr, "STORAGE"):
		return "storage"
	case strings.Contains(codeStr, "ENTITY") || strings.Contains(codeStr, "PROVIDER"):
		return "provider"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "notification"
	case strings.Contains(codeStr, "INVALID"):
		return "validation"
	default:
		return "internal"
	}
}
