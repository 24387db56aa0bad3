package library

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryContainer struct {
	createdAt time.Time
	files     map[string][]byte
	order     []string // discovery order of file names
}

// MemoryStore is an in-memory LibraryStore for tests and single-process use
type MemoryStore struct {
	mu         sync.RWMutex
	containers map[uuid.UUID]*memoryContainer
}

// NewMemoryStore creates a new in-memory library store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{containers: make(map[uuid.UUID]*memoryContainer)}
}

func (s *MemoryStore) CreateContainer(_ context.Context, uid uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.containers[uid]; exists {
		return NewContainerExistsError(uid.String())
	}
	s.containers[uid] = &memoryContainer{
		createdAt: time.Now(),
		files:     make(map[string][]byte),
	}
	return nil
}

func (s *MemoryStore) DeleteContainer(_ context.Context, uid uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.containers[uid]; !exists {
		return NewContainerNotFoundError(uid.String())
	}
	delete(s.containers, uid)
	return nil
}

func (s *MemoryStore) ListFiles(_ context.Context, uid uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	container, exists := s.containers[uid]
	if !exists {
		return nil, NewContainerNotFoundError(uid.String())
	}
	names := make([]string, len(container.order))
	copy(names, container.order)
	return names, nil
}

func (s *MemoryStore) PutFile(_ context.Context, uid uuid.UUID, name string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	container, exists := s.containers[uid]
	if !exists {
		return NewLibraryStorageError(uid.String(), name, NewContainerNotFoundError(uid.String()))
	}

	if _, present := container.files[name]; !present {
		container.order = append(container.order, name)
	}
	stored := make([]byte, len(content))
	copy(stored, content)
	container.files[name] = stored
	return nil
}

func (s *MemoryStore) GetFile(_ context.Context, uid uuid.UUID, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	container, exists := s.containers[uid]
	if !exists {
		return nil, NewFileNotFoundError(uid.String(), name)
	}
	content, present := container.files[name]
	if !present {
		return nil, NewFileNotFoundError(uid.String(), name)
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

func (s *MemoryStore) RemoveFile(_ context.Context, uid uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	container, exists := s.containers[uid]
	if !exists {
		return NewFileNotFoundError(uid.String(), name)
	}
	if _, present := container.files[name]; !present {
		return NewFileNotFoundError(uid.String(), name)
	}
	delete(container.files, name)
	for i, n := range container.order {
		if n == name {
			container.order = append(container.order[:i], container.order[i+1:]...)
			break
		}
	}
	return nil
}
