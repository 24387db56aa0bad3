package library

import (
	"errors"
	"fmt"
)

// LibraryError represents errors related to library operations
type LibraryError struct {
	Type    string
	UID     string
	Name    string
	Message string
	Cause   error
}

func (e *LibraryError) Error() string {
	target := e.UID
	if e.Name != "" {
		target = e.UID + "/" + e.Name
	}
	if e.Cause != nil {
		return fmt.Sprintf("library error [%s] for %s: %s (caused by: %v)", e.Type, target, e.Message, e.Cause)
	}
	return fmt.Sprintf("library error [%s] for %s: %s", e.Type, target, e.Message)
}

func (e *LibraryError) Unwrap() error {
	return e.Cause
}

// Library error types
const (
	LibraryErrorTypeAlreadyExists    = "already_exists"
	LibraryErrorTypeNotFound         = "not_found"
	LibraryErrorTypeUnauthorized     = "unauthorized"
	LibraryErrorTypePermissionDenied = "permission_denied"
	LibraryErrorTypeStorageFailed    = "storage_failed"
)

// NewContainerExistsError creates an error for provisioning an existing container
func NewContainerExistsError(uid string) *LibraryError {
	return &LibraryError{
		Type:    LibraryErrorTypeAlreadyExists,
		UID:     uid,
		Message: "library container already exists",
	}
}

// NewContainerNotFoundError creates an error for a missing container
func NewContainerNotFoundError(uid string) *LibraryError {
	return &LibraryError{
		Type:    LibraryErrorTypeNotFound,
		UID:     uid,
		Message: "library container not found",
	}
}

// NewFileNotFoundError creates an error for a missing file
func NewFileNotFoundError(uid, name string) *LibraryError {
	return &LibraryError{
		Type:    LibraryErrorTypeNotFound,
		UID:     uid,
		Name:    name,
		Message: "file not found",
	}
}

// NewUnauthorizedError creates an error for a bad or mismatched user token
func NewUnauthorizedError(uid, message string) *LibraryError {
	return &LibraryError{
		Type:    LibraryErrorTypeUnauthorized,
		UID:     uid,
		Message: message,
	}
}

// NewPermissionDeniedError creates an error for a non-service credential on
// a privileged operation
func NewPermissionDeniedError(uid string) *LibraryError {
	return &LibraryError{
		Type:    LibraryErrorTypePermissionDenied,
		UID:     uid,
		Message: "service credential required",
	}
}

// NewLibraryStorageError creates an error for an underlying storage fault
func NewLibraryStorageError(uid, name string, cause error) *LibraryError {
	return &LibraryError{
		Type:    LibraryErrorTypeStorageFailed,
		UID:     uid,
		Name:    name,
		Message: "library storage operation failed",
		Cause:   cause,
	}
}

// IsErrorType reports whether err is a *LibraryError of the given type.
func IsErrorType(err error, errorType string) bool {
	var libErr *LibraryError
	if errors.As(err, &libErr) {
		return libErr.Type == errorType
	}
	return false
}
