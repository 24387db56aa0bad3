package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotMutateDefaults(t *testing.T) {
	t.Setenv("LIBRARIUM_DB_HOST", "db.internal")
	Load()
	require.Equal(t, "db.internal", Postgres().Host)

	// Overrides from an earlier load must not bleed into the shared
	// default values.
	t.Setenv("LIBRARIUM_DB_HOST", "")
	LoadDefault()
	assert.Equal(t, "localhost", Postgres().Host)

	Load()
	assert.Equal(t, "localhost", Postgres().Host)
}

func TestApplyEnvOverrides(t *testing.T) {
	LoadDefault()

	t.Setenv("LIBRARIUM_DB_HOST", "db.internal")
	t.Setenv("LIBRARIUM_DB_PORT", "5433")
	t.Setenv("LIBRARIUM_SHARED_SECRET", "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ApplyEnvOverrides()

	assert.Equal(t, "db.internal", Postgres().Host)
	assert.Equal(t, 5433, Postgres().Port)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", Auth().SharedSecret)
}
