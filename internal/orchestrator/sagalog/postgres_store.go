package sagalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordSchema represents the saga_log table schema
type RecordSchema struct {
	bun.BaseModel `bun:"table:saga_log,alias:sl"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Kind      string    `bun:"kind,notnull" json:"kind"`
	Username  string    `bun:"username,notnull" json:"username"`
	UID       uuid.UUID `bun:"uid,type:uuid,nullzero" json:"uid"`
	State     string    `bun:"state,notnull" json:"state"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// SagaIndexes holds index DDL for the reconciliation sweep query.
var SagaIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_saga_log_state_updated ON saga_log (state, updated_at)",
}

// PostgresStore implements SagaStore with PostgreSQL storage
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL saga log store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateTables creates the saga_log table and its indexes
func CreateTables(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*RecordSchema)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create saga_log table: %w", err)
	}

	for _, indexSQL := range SagaIndexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index with SQL %q: %w", indexSQL, err)
		}
	}

	return nil
}

func (s *PostgresStore) Append(ctx context.Context, record *Record) error {
	schema := recordToSchema(record)
	_, err := s.db.NewInsert().
		Model(&schema).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to append saga record: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateState(ctx context.Context, id uuid.UUID, state string) error {
	result, err := s.db.NewUpdate().
		Model((*RecordSchema)(nil)).
		Where("id = ?", id).
		Set("state = ?", state).
		Set("updated_at = ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update saga state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("saga record %s not found", id)
	}

	return nil
}

func (s *PostgresStore) SetUID(ctx context.Context, id uuid.UUID, uid uuid.UUID) error {
	_, err := s.db.NewUpdate().
		Model((*RecordSchema)(nil)).
		Where("id = ?", id).
		Set("uid = ?", uid).
		Set("updated_at = ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set saga uid: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListStale(ctx context.Context, cutoff time.Time) ([]*Record, error) {
	var schemas []RecordSchema
	err := s.db.NewSelect().
		Model(&schemas).
		Where("state NOT IN (?, ?)", StateCommitted, StateFailed).
		Where("updated_at < ?", cutoff).
		Order("updated_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale saga records: %w", err)
	}

	records := make([]*Record, 0, len(schemas))
	for _, schema := range schemas {
		records = append(records, schemaToRecord(schema))
	}
	return records, nil
}

// Helper conversion functions
func schemaToRecord(schema RecordSchema) *Record {
	return &Record{
		ID:        schema.ID,
		Kind:      schema.Kind,
		Username:  schema.Username,
		UID:       schema.UID,
		State:     schema.State,
		CreatedAt: schema.CreatedAt,
		UpdatedAt: schema.UpdatedAt,
	}
}

func recordToSchema(record *Record) RecordSchema {
	return RecordSchema{
		ID:        record.ID,
		Kind:      record.Kind,
		Username:  record.Username,
		UID:       record.UID,
		State:     record.State,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
