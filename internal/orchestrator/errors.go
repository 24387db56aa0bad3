package orchestrator

import (
	"errors"
	"fmt"
)

// SagaError represents a failure in a cross-service lifecycle step
type SagaError struct {
	Type     string
	Username string
	Message  string
	Cause    error
}

func (e *SagaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("saga error [%s] for user %s: %s (caused by: %v)", e.Type, e.Username, e.Message, e.Cause)
	}
	return fmt.Sprintf("saga error [%s] for user %s: %s", e.Type, e.Username, e.Message)
}

func (e *SagaError) Unwrap() error {
	return e.Cause
}

// Saga error types
const (
	SagaErrorTypeProvisionFailed   = "provision_failed"
	SagaErrorTypeDeprovisionFailed = "deprovision_failed"
	SagaErrorTypeUnauthorized      = "unauthorized"
)

// NewProvisionFailedError creates an error for a failed library provisioning
// step; the user record has been rolled back (or flagged for the sweep).
func NewProvisionFailedError(username string, cause error) *SagaError {
	return &SagaError{
		Type:     SagaErrorTypeProvisionFailed,
		Username: username,
		Message:  "library provisioning failed",
		Cause:    cause,
	}
}

// NewDeprovisionFailedError creates an error for a failed library
// deprovisioning step; the user record is intentionally kept.
func NewDeprovisionFailedError(username string, cause error) *SagaError {
	return &SagaError{
		Type:     SagaErrorTypeDeprovisionFailed,
		Username: username,
		Message:  "library deprovisioning failed, user record kept",
		Cause:    cause,
	}
}

// NewUnauthorizedError creates an error for a bad or mismatched token
func NewUnauthorizedError(username string) *SagaError {
	return &SagaError{
		Type:     SagaErrorTypeUnauthorized,
		Username: username,
		Message:  "token does not match user identity",
	}
}

// IsErrorType reports whether err is a *SagaError of the given type.
func IsErrorType(err error, errorType string) bool {
	var sagaErr *SagaError
	if errors.As(err, &sagaErr) {
		return sagaErr.Type == errorType
	}
	return false
}
