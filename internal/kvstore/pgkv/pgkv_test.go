package pgkv

import (
	"context"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/internal/kvstore"
	"github.com/gaze-network/doginals-indexer/internal/kvstore/kvstoretest"
	"github.com/gaze-network/doginals-indexer/internal/postgres"
	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/require"
)

// Runs against a disposable database given by DOGINALS_TEST_POSTGRES_URL.
func TestStore(t *testing.T) {
	dbURL := os.Getenv("DOGINALS_TEST_POSTGRES_URL")
	if dbURL == "" {
		t.Skip("DOGINALS_TEST_POSTGRES_URL is not set")
	}

	m, err := NewMigrate(dbURL)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, postgres.Config{URL: dbURL})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	kvstoretest.Run(t, func(t *testing.T) kvstore.Store {
		_, err := pool.Exec(ctx, `TRUNCATE kv_versions, kv_meta`)
		require.NoError(t, err)
		s, err := New(ctx, pool, nil)
		require.NoError(t, err)
		return s
	})
}
