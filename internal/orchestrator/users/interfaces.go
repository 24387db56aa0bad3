package users

import (
	"context"

	"github.com/google/uuid"
)

// UserStore defines the interface for user record storage operations.
// Implementations must make Create and Remove atomic check-then-act so
// concurrent sagas for the same username cannot both succeed.
type UserStore interface {
	// Create mints a fresh identifier, derives the access token, and
	// persists the record. Fails with an already_exists error if a record
	// for username exists.
	Create(ctx context.Context, username, password string) (*User, error)

	// Authenticate returns the stored record after a successful password
	// check. Fails with not_found or invalid_credentials.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// Get returns the record for username, or a not_found error.
	Get(ctx context.Context, username string) (*User, error)

	// Remove deletes the record. A second removal fails with not_found;
	// callers wanting idempotence treat not_found as success.
	Remove(ctx context.Context, username string) error

	// FindByToken reports whether some record owns the given access token.
	// When expectedUID is non-nil the owning record's identifier must also
	// match. Lookups are indexed, not linear scans.
	FindByToken(ctx context.Context, accessToken string, expectedUID *uuid.UUID) (bool, error)
}

// UserService defines the interface for user service operations
type UserService interface {
	UserStore
}
