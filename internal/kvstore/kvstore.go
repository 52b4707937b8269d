// Package kvstore defines a versioned key-value store.
//
// Every write is stamped with the block height it belongs to. Readers see the
// newest version of each key. Truncate drops every version written at or above
// a height, which rolls the whole store back to the state it had after the
// previous block. Prune folds old versions together to bound disk usage; a
// pruned range can no longer be truncated into.
//
// Keys must be prefix-free: no key may be a strict prefix of another key.
// Callers get this by using fixed-length keys per namespace byte.
package kvstore

import (
	"context"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
)

// NoHeight is returned by Store.Height before the first Update.
const NoHeight int64 = -1

var (
	// ErrPruned is returned by Truncate when the target height is below the pruned horizon.
	ErrPruned = errors.New("kvstore: height is pruned")

	// ErrHeightRegression is returned by Update when height is below the last committed height.
	ErrHeightRegression = errors.New("kvstore: height regression")
)

// Reader reads the newest version of keys.
type Reader interface {
	// Get returns errs.NotFound if key is absent or deleted.
	// The returned slice is only valid until the enclosing function returns.
	Get(key []byte) ([]byte, error)

	// Iterate calls fn in ascending key order for every live key with the given prefix.
	// Returning ErrStop from fn ends the iteration without error.
	Iterate(prefix []byte, fn func(key, value []byte) error) error
}

// Writer stages writes for the height of the enclosing Update.
type Writer interface {
	Reader
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Store is a versioned key-value store. It is safe for one writer and many readers.
type Store interface {
	// View runs fn against the last committed state.
	View(ctx context.Context, fn func(r Reader) error) error

	// Update runs fn in a transaction stamped with height. Either every write in fn
	// is committed or none is. Height must not be below the last committed height.
	Update(ctx context.Context, height int64, fn func(w Writer) error) error

	// Truncate removes every version written at height >= from.
	Truncate(ctx context.Context, from int64) error

	// Prune collapses versions below height so only the newest one of each key remains.
	Prune(ctx context.Context, below int64) error

	// Height returns the last committed height, or NoHeight.
	Height(ctx context.Context) (int64, error)

	Close() error
}

// ErrStop ends an Iterate early.
var ErrStop = errors.New("kvstore: stop iteration")

// GetFunc reads key and decodes it with decode.
func GetFunc[T any](r Reader, key []byte, decode func([]byte) (T, error)) (T, error) {
	var zero T
	raw, err := r.Get(key)
	if err != nil {
		return zero, err
	}
	v, err := decode(raw)
	if err != nil {
		return zero, errors.Wrapf(errs.Corrupted, "decode key %x: %v", key, err)
	}
	return v, nil
}

// IsNotFound reports whether err means a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, errs.NotFound)
}

// VersionKey appends the big-endian height to key, so versions of one key sort by height.
func VersionKey(key []byte, height int64) []byte {
	out := make([]byte, len(key)+8)
	copy(out, key)
	binary.BigEndian.PutUint64(out[len(key):], uint64(height))
	return out
}

// SplitVersionKey is the inverse of VersionKey.
func SplitVersionKey(vk []byte) (key []byte, height int64, ok bool) {
	if len(vk) < 8 {
		return nil, 0, false
	}
	n := len(vk) - 8
	return vk[:n], int64(binary.BigEndian.Uint64(vk[n:])), true
}

// PrefixEnd returns the smallest key greater than every key with the given prefix,
// or nil if there is none (prefix is empty or all 0xff).
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
