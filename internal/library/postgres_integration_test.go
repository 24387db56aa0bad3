package library

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/librarium/librarium/internal/config"
)

// TestPostgresStoreIntegration exercises the real store against a local
// Postgres instance.
func TestPostgresStoreIntegration(t *testing.T) {
	ctx := context.Background()

	// Skip if Postgres not available (CI/local development flexibility)
	config.LoadDefault()
	config.ApplyEnvOverrides()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(config.Postgres().DSN())))
	if err := sqldb.PingContext(ctx); err != nil {
		t.Skipf("Postgres not reachable, skipping integration test: %v", err)
		return
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, CreateTables(ctx, db))

	store := NewPostgresStore(db)
	uid := uuid.New()
	t.Cleanup(func() {
		_, _ = db.NewDelete().Model((*FileSchema)(nil)).Where("container_uid = ?", uid).Exec(ctx)
		_, _ = db.NewDelete().Model((*ContainerSchema)(nil)).Where("uid = ?", uid).Exec(ctx)
	})

	require.NoError(t, store.CreateContainer(ctx, uid))

	t.Run("DuplicateContainer", func(t *testing.T) {
		err := store.CreateContainer(ctx, uid)
		assert.True(t, IsErrorType(err, LibraryErrorTypeAlreadyExists))
	})

	t.Run("UpsertReplacesContent", func(t *testing.T) {
		require.NoError(t, store.PutFile(ctx, uid, "notes.txt", []byte("first")))
		require.NoError(t, store.PutFile(ctx, uid, "notes.txt", []byte("second")))

		content, err := store.GetFile(ctx, uid, "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), content)

		names, err := store.ListFiles(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, []string{"notes.txt"}, names)
	})

	t.Run("RemoveFile", func(t *testing.T) {
		require.NoError(t, store.RemoveFile(ctx, uid, "notes.txt"))

		err := store.RemoveFile(ctx, uid, "notes.txt")
		assert.True(t, IsErrorType(err, LibraryErrorTypeNotFound))
	})

	t.Run("DeleteContainerRemovesFiles", func(t *testing.T) {
		require.NoError(t, store.PutFile(ctx, uid, "keep.txt", []byte("x")))
		require.NoError(t, store.DeleteContainer(ctx, uid))

		_, err := store.ListFiles(ctx, uid)
		assert.True(t, IsErrorType(err, LibraryErrorTypeNotFound))

		count, err := db.NewSelect().Model((*FileSchema)(nil)).Where("container_uid = ?", uid).Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		err = store.DeleteContainer(ctx, uid)
		assert.True(t, IsErrorType(err, LibraryErrorTypeNotFound))
	})
}
