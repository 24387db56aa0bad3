package library

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreContainerLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	uid := uuid.New()

	require.NoError(t, store.CreateContainer(ctx, uid))

	t.Run("DuplicateContainer", func(t *testing.T) {
		err := store.CreateContainer(ctx, uid)
		assert.True(t, IsErrorType(err, LibraryErrorTypeAlreadyExists))
	})

	t.Run("NewContainerIsEmpty", func(t *testing.T) {
		names, err := store.ListFiles(ctx, uid)
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("DeleteRemovesFilesToo", func(t *testing.T) {
		require.NoError(t, store.PutFile(ctx, uid, "notes.txt", []byte("hello")))
		require.NoError(t, store.DeleteContainer(ctx, uid))

		_, err := store.ListFiles(ctx, uid)
		assert.True(t, IsErrorType(err, LibraryErrorTypeNotFound))

		err = store.DeleteContainer(ctx, uid)
		assert.True(t, IsErrorType(err, LibraryErrorTypeNotFound))
	})
}

func TestMemoryStoreFiles(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	uid := uuid.New()
	require.NoError(t, store.CreateContainer(ctx, uid))

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, store.PutFile(ctx, uid, "notes.txt", []byte("first")))

		content, err := store.GetFile(ctx, uid, "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), content)
	})

	t.Run("OverwriteKeepsOneFile", func(t *testing.T) {
		require.NoError(t, store.PutFile(ctx, uid, "notes.txt", []byte("second")))

		names, err := store.ListFiles(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, []string{"notes.txt"}, names)

		content, err := store.GetFile(ctx, uid, "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), content)
	})

	t.Run("ListPreservesCreationOrder", func(t *testing.T) {
		require.NoError(t, store.PutFile(ctx, uid, "b.txt", []byte("b")))
		require.NoError(t, store.PutFile(ctx, uid, "a.txt", []byte("a")))

		names, err := store.ListFiles(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, []string{"notes.txt", "b.txt", "a.txt"}, names)
	})

	t.Run("GetUnknownFile", func(t *testing.T) {
		_, err := store.GetFile(ctx, uid, "missing.txt")
		assert.True(t, IsErrorType(err, LibraryErrorTypeNotFound))
	})

	t.Run("RemoveFile", func(t *testing.T) {
		require.NoError(t, store.RemoveFile(ctx, uid, "b.txt"))

		names, err := store.ListFiles(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, []string{"notes.txt", "a.txt"}, names)

		err = store.RemoveFile(ctx, uid, "b.txt")
		assert.True(t, IsErrorType(err, LibraryErrorTypeNotFound))
	})

	t.Run("PutIntoMissingContainer", func(t *testing.T) {
		err := store.PutFile(ctx, uuid.New(), "notes.txt", []byte("x"))
		assert.Error(t, err)
	})
}
