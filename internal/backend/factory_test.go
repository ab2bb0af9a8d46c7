package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimburse/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "redis", RedisURL: "redis://localhost:6379/0"})
	require.NoError(t, err)
	assert.Equal(t, RedisBackend, cfg.Type)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{Type: "nope"}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: RedisBackend}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Equal(t, []string{"memory", "sqlite", "redis"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackend(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.NoError(t, res.Close())
	assert.NoError(t, res.Check(ctx))

	seed := filepath.Join(t.TempDir(), "seed.kv")
	require.NoError(t, os.WriteFile(seed, []byte("@reimbursement_data=[]\n"), 0o644))
	res, err = NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, SeedFile: seed})
	require.NoError(t, err)
	v, err := res.Store.Get(ctx, "@reimbursement_data")
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "claims.db"),
	})
	require.NoError(t, err)
	defer res.Close()

	assert.NoError(t, res.Check(ctx))
	require.NoError(t, res.Store.Set(ctx, "k", "v"))
	v, err := res.Store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
