package users

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
	"github.com/librarium/librarium/internal/token"
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

	scheme, err := token.NewScheme("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)
	store := NewPostgresStore(db, scheme)

	username := "it_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_, _ = db.NewDelete().Model((*UserSchema)(nil)).Where("username = ?", username).Exec(ctx)
	})

	user, err := store.Create(ctx, username, "secret")
	require.NoError(t, err)
	assert.Equal(t, scheme.DeriveUserToken(user.UID), user.AccessToken)

	t.Run("DuplicateUsername", func(t *testing.T) {
		_, err := store.Create(ctx, username, "other")
		assert.True(t, IsErrorType(err, UserErrorTypeAlreadyExists))
	})

	t.Run("Authenticate", func(t *testing.T) {
		got, err := store.Authenticate(ctx, username, "secret")
		require.NoError(t, err)
		assert.Equal(t, user.UID, got.UID)

		_, err = store.Authenticate(ctx, username, "wrong")
		assert.True(t, IsErrorType(err, UserErrorTypeInvalidCredentials))
	})

	t.Run("FindByToken", func(t *testing.T) {
		found, err := store.FindByToken(ctx, user.AccessToken, nil)
		require.NoError(t, err)
		assert.True(t, found)

		other := uuid.New()
		found, err = store.FindByToken(ctx, user.AccessToken, &other)
		require.NoError(t, err)
		assert.False(t, found)

		found, err = store.FindByToken(ctx, uuid.NewString(), nil)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, username))

		err := store.Remove(ctx, username)
		assert.True(t, IsErrorType(err, UserErrorTypeNotFound))

		// The username can be registered again.
		again, err := store.Create(ctx, username, "secret")
		require.NoError(t, err)
		assert.NotEqual(t, user.UID, again.UID)
	})
}
