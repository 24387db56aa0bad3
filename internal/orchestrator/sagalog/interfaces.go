package sagalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SagaStore defines the interface for saga log storage operations
type SagaStore interface {
	// Append persists a new saga record.
	Append(ctx context.Context, record *Record) error

	// UpdateState transitions a saga to a new state.
	UpdateState(ctx context.Context, id uuid.UUID, state string) error

	// SetUID records the identifier once the user record has been minted.
	SetUID(ctx context.Context, id uuid.UUID, uid uuid.UUID) error

	// ListStale returns non-terminal records last touched before cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]*Record, error)
}
