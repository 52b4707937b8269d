// Package kvstoretest holds the behaviour tests shared by every kvstore backend.
package kvstoretest

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/internal/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run runs the suite. open must return an empty store; the suite closes it.
func Run(t *testing.T, open func(t *testing.T) kvstore.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s kvstore.Store)
	}{
		{"get missing", testGetMissing},
		{"newest version wins", testNewestVersion},
		{"delete", testDelete},
		{"iterate", testIterate},
		{"update is atomic", testUpdateAtomic},
		{"height regression", testHeightRegression},
		{"truncate", testTruncate},
		{"prune", testPrune},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func put(t *testing.T, s kvstore.Store, height int64, kv ...string) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), height, func(w kvstore.Writer) error {
		for i := 0; i+1 < len(kv); i += 2 {
			if err := w.Put([]byte(kv[i]), []byte(kv[i+1])); err != nil {
				return err
			}
		}
		return nil
	}))
}

func get(t *testing.T, s kvstore.Store, key string) (string, error) {
	t.Helper()
	var out string
	err := s.View(context.Background(), func(r kvstore.Reader) error {
		v, err := r.Get([]byte(key))
		if err != nil {
			return err
		}
		out = string(v)
		return nil
	})
	return out, err
}

func collect(t *testing.T, s kvstore.Store, prefix string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, s.View(context.Background(), func(r kvstore.Reader) error {
		return r.Iterate([]byte(prefix), func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	}))
	return out
}

func testGetMissing(t *testing.T, s kvstore.Store) {
	_, err := get(t, s, "ka")
	assert.ErrorIs(t, err, errs.NotFound)

	h, err := s.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, kvstore.NoHeight, h)
}

func testNewestVersion(t *testing.T, s kvstore.Store) {
	put(t, s, 1, "ka", "v1")
	put(t, s, 2, "ka", "v2")
	put(t, s, 2, "ka", "v2b")

	v, err := get(t, s, "ka")
	require.NoError(t, err)
	assert.Equal(t, "v2b", v)

	h, err := s.Height(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, h)
}

func testDelete(t *testing.T, s kvstore.Store) {
	put(t, s, 1, "ka", "v1", "kb", "v1")
	require.NoError(t, s.Update(context.Background(), 2, func(w kvstore.Writer) error {
		return w.Delete([]byte("ka"))
	}))

	_, err := get(t, s, "ka")
	assert.ErrorIs(t, err, errs.NotFound)
	assert.Equal(t, map[string]string{"kb": "v1"}, collect(t, s, "k"))
}

func testIterate(t *testing.T, s kvstore.Store) {
	put(t, s, 1, "aa", "1", "ab", "2", "ba", "3")
	put(t, s, 2, "ab", "22")

	assert.Equal(t, map[string]string{"aa": "1", "ab": "22"}, collect(t, s, "a"))
	assert.Len(t, collect(t, s, ""), 3)

	var keys []string
	require.NoError(t, s.View(context.Background(), func(r kvstore.Reader) error {
		return r.Iterate(nil, func(k, _ []byte) error {
			keys = append(keys, string(k))
			if len(keys) == 2 {
				return kvstore.ErrStop
			}
			return nil
		})
	}))
	assert.Equal(t, []string{"aa", "ab"}, keys)
}

func testUpdateAtomic(t *testing.T, s kvstore.Store) {
	put(t, s, 1, "ka", "v1")

	boom := errors.New("boom")
	err := s.Update(context.Background(), 2, func(w kvstore.Writer) error {
		if err := w.Put([]byte("ka"), []byte("v2")); err != nil {
			return err
		}
		// own writes are visible inside the transaction
		v, err := w.Get([]byte("ka"))
		if err != nil {
			return err
		}
		if string(v) != "v2" {
			return errors.Newf("read %q inside update", v)
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	v, err := get(t, s, "ka")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	h, err := s.Height(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, h)
}

func testHeightRegression(t *testing.T, s kvstore.Store) {
	put(t, s, 5, "ka", "v")
	err := s.Update(context.Background(), 4, func(w kvstore.Writer) error { return nil })
	assert.ErrorIs(t, err, kvstore.ErrHeightRegression)
}

func testTruncate(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	put(t, s, 1, "ka", "v1")
	put(t, s, 2, "ka", "v2", "kb", "new")
	require.NoError(t, s.Update(ctx, 3, func(w kvstore.Writer) error { return w.Delete([]byte("ka")) }))

	require.NoError(t, s.Truncate(ctx, 2))

	v, err := get(t, s, "ka")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)
	_, err = get(t, s, "kb")
	assert.ErrorIs(t, err, errs.NotFound)

	h, err := s.Height(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, h)

	// the chain continues from the truncated height
	put(t, s, 2, "ka", "v2'")
	v, err = get(t, s, "ka")
	require.NoError(t, err)
	assert.Equal(t, "v2'", v)

	require.NoError(t, s.Truncate(ctx, 0))
	assert.Empty(t, collect(t, s, ""))
	h, err = s.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, kvstore.NoHeight, h)
}

func testPrune(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	put(t, s, 1, "ka", "v1", "kb", "b1")
	put(t, s, 2, "ka", "v2")
	require.NoError(t, s.Update(ctx, 3, func(w kvstore.Writer) error { return w.Delete([]byte("kb")) }))
	put(t, s, 4, "ka", "v4")
	put(t, s, 5, "kc", "c5")

	before := collect(t, s, "")
	require.NoError(t, s.Prune(ctx, 4))
	assert.Equal(t, before, collect(t, s, ""), "prune must not change the visible state")

	assert.ErrorIs(t, s.Truncate(ctx, 3), kvstore.ErrPruned)

	// truncating at the horizon restores the state after block 3
	require.NoError(t, s.Truncate(ctx, 4))
	assert.Equal(t, map[string]string{"ka": "v2"}, collect(t, s, ""))
}
