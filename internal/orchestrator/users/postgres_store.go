package users

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenDeriver derives the capability token for a freshly minted identifier.
// Satisfied by *token.Scheme; injected so stores never touch ambient secrets.
type TokenDeriver interface {
	DeriveUserToken(identifier uuid.UUID) string
}

// UserSchema represents the users table schema in PostgreSQL
type UserSchema struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UID         uuid.UUID `bun:"uid,pk,type:uuid" json:"uid"`
	Username    string    `bun:"username,notnull,unique" json:"username"`
	Password    string    `bun:"password,notnull" json:"-"`
	AccessToken string    `bun:"access_token,notnull" json:"access_token"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// UserIndexes holds index DDL applied after table creation. The access_token
// index backs FindByToken so token resolution is not a table scan.
var UserIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_users_access_token ON users (access_token)",
}

// PostgresStore implements UserStore with PostgreSQL storage
type PostgresStore struct {
	db      *bun.DB
	deriver TokenDeriver
}

// NewPostgresStore creates a new PostgreSQL user store
func NewPostgresStore(db *bun.DB, deriver TokenDeriver) *PostgresStore {
	return &PostgresStore{
		db:      db,
		deriver: deriver,
	}
}

// CreateTables creates the users table and its indexes
func CreateTables(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*UserSchema)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	for _, indexSQL := range UserIndexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index with SQL %q: %w", indexSQL, err)
		}
	}

	return nil
}

// Create mints uid and token and inserts the record. The unique username
// constraint provides the atomic check-then-act: of two concurrent creates
// exactly one insert wins.
func (s *PostgresStore) Create(ctx context.Context, username, password string) (*User, error) {
	uid := uuid.New()
	user := &User{
		Username:    username,
		Password:    password,
		UID:         uid,
		AccessToken: s.deriver.DeriveUserToken(uid),
		CreatedAt:   time.Now(),
	}

	schema := userToSchema(user)
	_, err := s.db.NewInsert().
		Model(&schema).
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") ||
			strings.Contains(err.Error(), "users_username_key") {
			return nil, NewUserAlreadyExistsError(username)
		}
		return nil, NewUserStorageError(username, err)
	}

	return user, nil
}

// Authenticate fetches the record and checks the password byte-for-byte.
func (s *PostgresStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return nil, NewInvalidCredentialsError(username)
	}

	return user, nil
}

// Get retrieves a user record by username
func (s *PostgresStore) Get(ctx context.Context, username string) (*User, error) {
	var schema UserSchema
	err := s.db.NewSelect().
		Model(&schema).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewUserNotFoundError(username)
		}
		return nil, NewUserStorageError(username, err)
	}

	return schemaToUser(schema), nil
}

// Remove hard-deletes the record so the username is free to register again.
func (s *PostgresStore) Remove(ctx context.Context, username string) error {
	result, err := s.db.NewDelete().
		Model((*UserSchema)(nil)).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return NewUserStorageError(username, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return NewUserStorageError(username, err)
	}
	if rowsAffected == 0 {
		return NewUserNotFoundError(username)
	}

	return nil
}

// FindByToken resolves a token through the access_token index.
func (s *PostgresStore) FindByToken(ctx context.Context, accessToken string, expectedUID *uuid.UUID) (bool, error) {
	var schema UserSchema
	err := s.db.NewSelect().
		Model(&schema).
		Where("access_token = ?", accessToken).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, NewUserStorageError("", err)
	}

	if expectedUID != nil && schema.UID != *expectedUID {
		return false, nil
	}

	return true, nil
}

// Helper conversion functions
func schemaToUser(schema UserSchema) *User {
	return &User{
		Username:    schema.Username,
		Password:    schema.Password,
		UID:         schema.UID,
		AccessToken: schema.AccessToken,
		CreatedAt:   schema.CreatedAt,
	}
}

func userToSchema(user *User) UserSchema {
	return UserSchema{
		UID:         user.UID,
		Username:    user.Username,
		Password:    user.Password,
		AccessToken: user.AccessToken,
		CreatedAt:   user.CreatedAt,
	}
}
