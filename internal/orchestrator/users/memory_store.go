package users

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory UserStore for tests and single-process use.
// It keeps a token index alongside the record map so FindByToken stays an
// O(1) lookup, mirroring the Postgres access_token index.
type MemoryStore struct {
	mu         sync.RWMutex
	byUsername map[string]*User
	byToken    map[string]*User
	deriver    TokenDeriver
}

// NewMemoryStore creates a new in-memory user store
func NewMemoryStore(deriver TokenDeriver) *MemoryStore {
	return &MemoryStore{
		byUsername: make(map[string]*User),
		byToken:    make(map[string]*User),
		deriver:    deriver,
	}
}

func (s *MemoryStore) Create(_ context.Context, username, password string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[username]; exists {
		return nil, NewUserAlreadyExistsError(username)
	}

	uid := uuid.New()
	user := &User{
		Username:    username,
		Password:    password,
		UID:         uid,
		AccessToken: s.deriver.DeriveUserToken(uid),
		CreatedAt:   time.Now(),
	}

	s.byUsername[username] = user
	s.byToken[user.AccessToken] = user
	return copyUser(user), nil
}

func (s *MemoryStore) Authenticate(_ context.Context, username, password string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.byUsername[username]
	if !exists {
		return nil, NewUserNotFoundError(username)
	}
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return nil, NewInvalidCredentialsError(username)
	}
	return copyUser(user), nil
}

func (s *MemoryStore) Get(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.byUsername[username]
	if !exists {
		return nil, NewUserNotFoundError(username)
	}
	return copyUser(user), nil
}

func (s *MemoryStore) Remove(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.byUsername[username]
	if !exists {
		return NewUserNotFoundError(username)
	}
	delete(s.byUsername, username)
	delete(s.byToken, user.AccessToken)
	return nil
}

func (s *MemoryStore) FindByToken(_ context.Context, accessToken string, expectedUID *uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.byToken[accessToken]
	if !exists {
		return false, nil
	}
	if expectedUID != nil && user.UID != *expectedUID {
		return false, nil
	}
	return true, nil
}

func copyUser(user *User) *User {
	clone := *user
	return &clone
}
