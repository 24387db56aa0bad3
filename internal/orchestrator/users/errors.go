package users

import (
	"errors"
	"fmt"
)

// UserError represents errors related to user store operations
type UserError struct {
	Type     string
	Username string
	Message  string
	Cause    error
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("user error [%s] for user %s: %s (caused by: %v)", e.Type, e.Username, e.Message, e.Cause)
	}
	return fmt.Sprintf("user error [%s] for user %s: %s", e.Type, e.Username, e.Message)
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// User error types
const (
	UserErrorTypeAlreadyExists      = "already_exists"
	UserErrorTypeNotFound           = "not_found"
	UserErrorTypeInvalidCredentials = "invalid_credentials"
	UserErrorTypeInvalidRequest     = "invalid_request"
	UserErrorTypeStorageFailed      = "storage_failed"
)

// NewUserAlreadyExistsError creates an error for when a username is taken
func NewUserAlreadyExistsError(username string) *UserError {
	return &UserError{
		Type:     UserErrorTypeAlreadyExists,
		Username: username,
		Message:  "user already exists and cannot be registered again",
	}
}

// NewUserNotFoundError creates an error for when a user record is absent
func NewUserNotFoundError(username string) *UserError {
	return &UserError{
		Type:     UserErrorTypeNotFound,
		Username: username,
		Message:  "user not found",
	}
}

// NewInvalidCredentialsError creates an error for a failed password check
func NewInvalidCredentialsError(username string) *UserError {
	return &UserError{
		Type:     UserErrorTypeInvalidCredentials,
		Username: username,
		Message:  "invalid credentials",
	}
}

// NewInvalidRequestError creates an error for malformed user input
func NewInvalidRequestError(username, message string) *UserError {
	return &UserError{
		Type:     UserErrorTypeInvalidRequest,
		Username: username,
		Message:  message,
	}
}

// NewUserStorageError creates an error for an underlying storage fault
func NewUserStorageError(username string, cause error) *UserError {
	return &UserError{
		Type:     UserErrorTypeStorageFailed,
		Username: username,
		Message:  "user storage operation failed",
		Cause:    cause,
	}
}

// IsErrorType reports whether err is a *UserError of the given type.
func IsErrorType(err error, errorType string) bool {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Type == errorType
	}
	return false
}
