package utils

import (
	"fmt"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// GetServiceError extracts a ServiceError from an error
func GetServiceError(err error) (ServiceError, bool) {
	if serviceErr, ok := err.(ServiceError); ok {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// Error code constants
const (
	ErrCodeNoPriorClockIn    = "NO_PRIOR_CLOCKIN"
	ErrCodeWriteFailed       = "WRITE_FAILED"
	ErrCodeTransportFailed   = "TRANSPORT_FAILED"
	ErrCodeContextUnresolved = "CONTEXT_UNRESOLVED"
	ErrCodeDatabase          = "DATABASE_ERROR"
)

// Common error constructors for the clock-out and ingestion paths
func NewNoPriorClockInError(uid string) error {
	return ServiceError{
		Code:    ErrCodeNoPriorClockIn,
		Message: "Attendance document has no open clock-in",
		Details: uid,
	}
}

func NewWriteFailedError(operation string, cause error) error {
	return ServiceError{
		Code:    ErrCodeWriteFailed,
		Message: fmt.Sprintf("Document write failed: %s", operation),
		Cause:   cause,
	}
}

func NewTransportError(message string, cause error) error {
	return ServiceError{
		Code:    ErrCodeTransportFailed,
		Message: message,
		Cause:   cause,
	}
}

func NewContextUnresolvedError(chatID int64) error {
	return ServiceError{
		Code:    ErrCodeContextUnresolved,
		Message: "No employee linked to chat",
		Details: fmt.Sprintf("chatId=%d", chatID),
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:    ErrCodeDatabase,
		Message: fmt.Sprintf("Database operation failed: %s", operation),
		Cause:   cause,
	}
}
