package boltkv

import (
	"path/filepath"
	"testing"

	"github.com/gaze-network/doginals-indexer/internal/kvstore"
	"github.com/gaze-network/doginals-indexer/internal/kvstore/kvstoretest"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	kvstoretest.Run(t, func(t *testing.T) kvstore.Store {
		s, err := Open(filepath.Join(t.TempDir(), "db", "index.db"))
		require.NoError(t, err)
		return s
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
