package library

import (
	"context"

	"github.com/google/uuid"
)

// LibraryStore defines the interface for container and file storage. The
// container for one identifier is logically exclusive to that identifier;
// file writes replace content atomically (entirely or not at all).
type LibraryStore interface {
	// CreateContainer creates an empty container. Fails with already_exists
	// if one is present for uid.
	CreateContainer(ctx context.Context, uid uuid.UUID) error

	// DeleteContainer removes the container and all contained files. No
	// partial delete is ever visible. Fails with not_found when absent.
	DeleteContainer(ctx context.Context, uid uuid.UUID) error

	// ListFiles returns file names in discovery order. Fails with
	// not_found when the container is absent.
	ListFiles(ctx context.Context, uid uuid.UUID) ([]string, error)

	// PutFile writes content under name, silently replacing any prior
	// content. Fails with storage_failed when the container is absent.
	PutFile(ctx context.Context, uid uuid.UUID, name string, content []byte) error

	// GetFile returns the content stored under name, or not_found.
	GetFile(ctx context.Context, uid uuid.UUID, name string) ([]byte, error)

	// RemoveFile deletes the file under name, or fails with not_found.
	RemoveFile(ctx context.Context, uid uuid.UUID, name string) error
}

// TokenValidator confirms a capability token against the users service. An
// empty identifier asks whether the token belongs to any registered user.
type TokenValidator interface {
	Validate(ctx context.Context, identifier, accessToken string) (bool, error)
}
