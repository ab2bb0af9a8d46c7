package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimburse/internal/kv"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Get(ctx, "@reimbursement_data")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "@reimbursement_data", `[{"id":"1"}]`))
	require.NoError(t, s.Set(ctx, "@reimbursement_data", `[]`))

	got, err := s.Get(ctx, "@reimbursement_data")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)

	require.NoError(t, s.Remove(ctx, "@reimbursement_data"))
	require.NoError(t, s.Remove(ctx, "@reimbursement_data"))
	_, err = s.Get(ctx, "@reimbursement_data")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)
	require.NoError(t, s.Set(ctx, "k", "persisted"))
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	_, path := newTestStore(t)
	require.NoError(t, RunMigrations(path))
}
