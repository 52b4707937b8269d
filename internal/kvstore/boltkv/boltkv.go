// Package boltkv implements kvstore.Store on an embedded bbolt database.
//
// Layout:
//
//	versions: key || height        -> flag || value
//	heights:  height || key        -> (empty), drives Truncate and Prune
//	meta:     "height" / "pruned"  -> big-endian int64
package boltkv

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/internal/kvstore"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketVersions = []byte("versions")
	bucketHeights  = []byte("heights")
	bucketMeta     = []byte("meta")

	metaHeight = []byte("height")
	metaPruned = []byte("pruned")
)

const (
	flagLive      byte = 0
	flagTombstone byte = 1
)

var _ kvstore.Store = (*Store)(nil)

type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "bolt path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open bbolt")
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketVersions, bucketHeights, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return errors.Wrapf(err, "create bucket %s", b)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, errors.WithStack(err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return errors.WithStack(s.db.Close())
}

func (s *Store) View(ctx context.Context, fn func(r kvstore.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&reader{versions: tx.Bucket(bucketVersions)})
	})
}

func (s *Store) Update(ctx context.Context, height int64, fn func(w kvstore.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	if height < 0 {
		return errors.Wrapf(errs.InvalidArgument, "negative height %d", height)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if current := getInt64(meta, metaHeight, kvstore.NoHeight); height < current {
			return errors.Wrapf(kvstore.ErrHeightRegression, "update at %d, committed %d", height, current)
		}
		w := &writer{
			reader:  reader{versions: tx.Bucket(bucketVersions)},
			heights: tx.Bucket(bucketHeights),
			height:  height,
		}
		if err := fn(w); err != nil {
			return err
		}
		return putInt64(meta, metaHeight, height)
	})
}

func (s *Store) Truncate(ctx context.Context, from int64) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if pruned := getInt64(meta, metaPruned, 0); from < pruned {
			return errors.Wrapf(kvstore.ErrPruned, "truncate from %d, pruned below %d", from, pruned)
		}

		versions, heights := tx.Bucket(bucketVersions), tx.Bucket(bucketHeights)
		var stale [][]byte
		c := heights.Cursor()
		for k, _ := c.Seek(heightPrefix(max(from, 0))); k != nil; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, hk := range stale {
			h, key := splitHeightKey(hk)
			if err := versions.Delete(kvstore.VersionKey(key, h)); err != nil {
				return errors.WithStack(err)
			}
			if err := heights.Delete(hk); err != nil {
				return errors.WithStack(err)
			}
		}

		if current := getInt64(meta, metaHeight, kvstore.NoHeight); current >= from {
			return putInt64(meta, metaHeight, max(from-1, kvstore.NoHeight))
		}
		return nil
	})
}

func (s *Store) Prune(ctx context.Context, below int64) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if below <= getInt64(meta, metaPruned, 0) {
			return nil
		}

		versions, heights := tx.Bucket(bucketVersions), tx.Bucket(bucketHeights)
		lookup := versions.Cursor()
		var stale [][]byte
		c := heights.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			h, key := splitHeightKey(k)
			if h >= below {
				break
			}
			value, newest, ok := latest(lookup, key, below)
			if ok && newest == h && value[0] == flagLive {
				continue
			}
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, hk := range stale {
			h, key := splitHeightKey(hk)
			if err := versions.Delete(kvstore.VersionKey(key, h)); err != nil {
				return errors.WithStack(err)
			}
			if err := heights.Delete(hk); err != nil {
				return errors.WithStack(err)
			}
		}
		return putInt64(meta, metaPruned, below)
	})
}

func (s *Store) Height(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return kvstore.NoHeight, errors.WithStack(err)
	}
	height := kvstore.NoHeight
	err := s.db.View(func(tx *bolt.Tx) error {
		height = getInt64(tx.Bucket(bucketMeta), metaHeight, kvstore.NoHeight)
		return nil
	})
	return height, errors.WithStack(err)
}

type reader struct {
	versions *bolt.Bucket
}

func (r *reader) Get(key []byte) ([]byte, error) {
	value, _, ok := latest(r.versions.Cursor(), key, math.MaxInt64)
	if !ok || value[0] == flagTombstone {
		return nil, errors.Wrapf(errs.NotFound, "key %x", key)
	}
	return value[1:], nil
}

func (r *reader) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	var curKey, curValue []byte
	emit := func() error {
		if curKey == nil || curValue[0] == flagTombstone {
			return nil
		}
		return fn(curKey, curValue[1:])
	}

	c := r.versions.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		key, _, ok := kvstore.SplitVersionKey(k)
		if !ok || !bytes.HasPrefix(key, prefix) {
			continue
		}
		if curKey != nil && !bytes.Equal(curKey, key) {
			if err := emit(); err != nil {
				if errors.Is(err, kvstore.ErrStop) {
					return nil
				}
				return err
			}
		}
		curKey, curValue = key, v
	}
	if err := emit(); err != nil && !errors.Is(err, kvstore.ErrStop) {
		return err
	}
	return nil
}

type writer struct {
	reader
	heights *bolt.Bucket
	height  int64
}

func (w *writer) Put(key, value []byte) error {
	return w.write(key, flagLive, value)
}

func (w *writer) Delete(key []byte) error {
	return w.write(key, flagTombstone, nil)
}

func (w *writer) write(key []byte, flag byte, value []byte) error {
	if len(key) == 0 {
		return errors.Wrap(errs.InvalidArgument, "empty key")
	}
	entry := make([]byte, 1+len(value))
	entry[0] = flag
	copy(entry[1:], value)
	if err := w.versions.Put(kvstore.VersionKey(key, w.height), entry); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(w.heights.Put(heightKey(w.height, key), []byte{}))
}

// latest returns the newest version of key written below height `before`.
func latest(c *bolt.Cursor, key []byte, before int64) (value []byte, height int64, ok bool) {
	k, v := c.Seek(kvstore.VersionKey(key, before))
	if k == nil {
		k, v = c.Last()
	} else {
		k, v = c.Prev()
	}
	if k == nil {
		return nil, 0, false
	}
	found, h, ok := kvstore.SplitVersionKey(k)
	if !ok || !bytes.Equal(found, key) || len(v) == 0 {
		return nil, 0, false
	}
	return v, h, true
}

func heightPrefix(height int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(height))
	return b[:]
}

func heightKey(height int64, key []byte) []byte {
	return append(heightPrefix(height), key...)
}

func splitHeightKey(hk []byte) (int64, []byte) {
	return int64(binary.BigEndian.Uint64(hk[:8])), hk[8:]
}

func getInt64(b *bolt.Bucket, key []byte, def int64) int64 {
	v := b.Get(key)
	if len(v) != 8 {
		return def
	}
	return int64(binary.BigEndian.Uint64(v))
}

func putInt64(b *bolt.Bucket, key []byte, v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return errors.WithStack(b.Put(key, buf[:]))
}
