package users

import (
	"context"

	"github.com/google/uuid"
)

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	store UserStore
}

// NewUserService creates a new user service instance
func NewUserService(store UserStore) *UserServiceImpl {
	return &UserServiceImpl{
		store: store,
	}
}

// Create creates a new user record
func (s *UserServiceImpl) Create(ctx context.Context, username, password string) (*User, error) {
	if username == "" {
		return nil, NewInvalidRequestError(username, "username is required")
	}
	if password == "" {
		return nil, NewInvalidRequestError(username, "password is required")
	}
	return s.store.Create(ctx, username, password)
}

// Authenticate checks credentials and returns the stored record
func (s *UserServiceImpl) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, NewInvalidRequestError(username, "username and password are required")
	}
	return s.store.Authenticate(ctx, username, password)
}

// Get returns the record for username
func (s *UserServiceImpl) Get(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, NewInvalidRequestError(username, "username is required")
	}
	return s.store.Get(ctx, username)
}

// Remove deletes the record for username
func (s *UserServiceImpl) Remove(ctx context.Context, username string) error {
	if username == "" {
		return NewInvalidRequestError(username, "username is required")
	}
	return s.store.Remove(ctx, username)
}

// FindByToken resolves an access token to a record, optionally pinned to an
// expected identifier
func (s *UserServiceImpl) FindByToken(ctx context.Context, accessToken string, expectedUID *uuid.UUID) (bool, error) {
	if accessToken == "" {
		return false, nil
	}
	return s.store.FindByToken(ctx, accessToken, expectedUID)
}
