package sagalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory SagaStore for tests and single-process use
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

// NewMemoryStore creates a new in-memory saga log store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]*Record)}
}

func (s *MemoryStore) Append(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("saga record %s already exists", record.ID)
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *MemoryStore) UpdateState(_ context.Context, id uuid.UUID, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[id]
	if !exists {
		return fmt.Errorf("saga record %s not found", id)
	}
	record.State = state
	record.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetUID(_ context.Context, id uuid.UUID, uid uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[id]
	if !exists {
		return fmt.Errorf("saga record %s not found", id)
	}
	record.UID = uid
	record.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ListStale(_ context.Context, cutoff time.Time) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []*Record
	for _, record := range s.records {
		if record.Terminal() {
			continue
		}
		if record.UpdatedAt.Before(cutoff) {
			clone := *record
			stale = append(stale, &clone)
		}
	}
	return stale, nil
}

// Get returns a copy of a record; used by tests to assert transitions.
func (s *MemoryStore) Get(id uuid.UUID) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[id]
	if !exists {
		return nil, false
	}
	clone := *record
	return &clone, true
}

// All returns copies of every record; used by tests.
func (s *MemoryStore) All() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*Record, 0, len(s.records))
	for _, record := range s.records {
		clone := *record
		records = append(records, &clone)
	}
	return records
}
