package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ContainerSchema represents the containers table schema
type ContainerSchema struct {
	bun.BaseModel `bun:"table:containers,alias:c"`

	UID       uuid.UUID `bun:"uid,pk,type:uuid" json:"uid"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// FileSchema represents the files table schema
type FileSchema struct {
	bun.BaseModel `bun:"table:files,alias:f"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ContainerUID uuid.UUID `bun:"container_uid,notnull,type:uuid" json:"container_uid"`
	Name         string    `bun:"name,notnull" json:"name"`
	Content      []byte    `bun:"content,notnull,type:bytea" json:"-"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// FileIndexes holds index DDL applied after table creation. The unique index
// is what makes PutFile's upsert an atomic full replacement.
var FileIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_files_container_name ON files (container_uid, name)",
}

// PostgresStore implements LibraryStore with PostgreSQL storage
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL library store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateTables creates the containers and files tables and their indexes
func CreateTables(ctx context.Context, db *bun.DB) error {
	models := []interface{}{
		(*ContainerSchema)(nil),
		(*FileSchema)(nil),
	}

	for _, model := range models {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table for model %T: %w", model, err)
		}
	}

	for _, indexSQL := range FileIndexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index with SQL %q: %w", indexSQL, err)
		}
	}

	return nil
}

func (s *PostgresStore) CreateContainer(ctx context.Context, uid uuid.UUID) error {
	schema := &ContainerSchema{
		UID:       uid,
		CreatedAt: time.Now(),
	}

	_, err := s.db.NewInsert().
		Model(schema).
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return NewContainerExistsError(uid.String())
		}
		return NewLibraryStorageError(uid.String(), "", err)
	}

	return nil
}

// DeleteContainer removes the container row and its files in one
// transaction so no partial delete is ever visible.
func (s *PostgresStore) DeleteContainer(ctx context.Context, uid uuid.UUID) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewDelete().
			Model((*ContainerSchema)(nil)).
			Where("uid = ?", uid).
			Exec(ctx)
		if err != nil {
			return NewLibraryStorageError(uid.String(), "", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return NewLibraryStorageError(uid.String(), "", err)
		}
		if rowsAffected == 0 {
			return NewContainerNotFoundError(uid.String())
		}

		_, err = tx.NewDelete().
			Model((*FileSchema)(nil)).
			Where("container_uid = ?", uid).
			Exec(ctx)
		if err != nil {
			return NewLibraryStorageError(uid.String(), "", err)
		}
		return nil
	})
	return err
}

func (s *PostgresStore) ListFiles(ctx context.Context, uid uuid.UUID) ([]string, error) {
	exists, err := s.containerExists(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, NewContainerNotFoundError(uid.String())
	}

	var names []string
	err = s.db.NewSelect().
		Model((*FileSchema)(nil)).
		Column("name").
		Where("container_uid = ?", uid).
		Order("created_at ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, NewLibraryStorageError(uid.String(), "", err)
	}

	if names == nil {
		names = []string{}
	}
	return names, nil
}

// PutFile upserts the row; the unique (container_uid, name) index makes the
// replacement atomic under concurrent writers.
func (s *PostgresStore) PutFile(ctx context.Context, uid uuid.UUID, name string, content []byte) error {
	exists, err := s.containerExists(ctx, uid)
	if err != nil {
		return err
	}
	if !exists {
		return NewLibraryStorageError(uid.String(), name, NewContainerNotFoundError(uid.String()))
	}

	now := time.Now()
	schema := &FileSchema{
		ID:           uuid.New(),
		ContainerUID: uid,
		Name:         name,
		Content:      content,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.NewInsert().
		Model(schema).
		On("CONFLICT (container_uid, name) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return NewLibraryStorageError(uid.String(), name, err)
	}

	return nil
}

func (s *PostgresStore) GetFile(ctx context.Context, uid uuid.UUID, name string) ([]byte, error) {
	var schema FileSchema
	err := s.db.NewSelect().
		Model(&schema).
		Where("container_uid = ?", uid).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewFileNotFoundError(uid.String(), name)
		}
		return nil, NewLibraryStorageError(uid.String(), name, err)
	}

	return schema.Content, nil
}

func (s *PostgresStore) RemoveFile(ctx context.Context, uid uuid.UUID, name string) error {
	result, err := s.db.NewDelete().
		Model((*FileSchema)(nil)).
		Where("container_uid = ?", uid).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return NewLibraryStorageError(uid.String(), name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return NewLibraryStorageError(uid.String(), name, err)
	}
	if rowsAffected == 0 {
		return NewFileNotFoundError(uid.String(), name)
	}

	return nil
}

func (s *PostgresStore) containerExists(ctx context.Context, uid uuid.UUID) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*ContainerSchema)(nil)).
		Where("uid = ?", uid).
		Exists(ctx)
	if err != nil {
		return false, NewLibraryStorageError(uid.String(), "", err)
	}
	return exists, nil
}
