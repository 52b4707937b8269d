// Package pgkv implements kvstore.Store on PostgreSQL.
// The schema is created by the embedded migrations (see NewMigrate).
package pgkv

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/internal/kvstore"
	"github.com/gaze-network/doginals-indexer/internal/postgres"
	"github.com/jackc/pgx/v5"
)

const (
	metaHeight = "height"
	metaPruned = "pruned"
)

var _ kvstore.Store = (*Store)(nil)

type Store struct {
	db    postgres.DB
	close func()
}

// New wraps db. closeFn is called by Close and may be nil.
func New(ctx context.Context, db postgres.DB, closeFn func()) (*Store, error) {
	var exists bool
	if err := db.QueryRow(ctx, `SELECT to_regclass('kv_versions') IS NOT NULL`).Scan(&exists); err != nil {
		return nil, errors.Wrap(err, "failed to check schema")
	}
	if !exists {
		return nil, errors.Wrap(errs.ConflictSetting, "table kv_versions does not exist, run `migrate up` first")
	}
	return &Store{db: db, close: closeFn}, nil
}

func (s *Store) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(r kvstore.Reader) error) error {
	return s.inTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		return fn(&reader{ctx: ctx, q: tx})
	})
}

func (s *Store) Update(ctx context.Context, height int64, fn func(w kvstore.Writer) error) error {
	if height < 0 {
		return errors.Wrapf(errs.InvalidArgument, "negative height %d", height)
	}
	return s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		current, err := getMeta(ctx, tx, metaHeight, kvstore.NoHeight)
		if err != nil {
			return err
		}
		if height < current {
			return errors.Wrapf(kvstore.ErrHeightRegression, "update at %d, committed %d", height, current)
		}
		if err := fn(&writer{reader: reader{ctx: ctx, q: tx}, height: height}); err != nil {
			return err
		}
		return setMeta(ctx, tx, metaHeight, height)
	})
}

func (s *Store) Truncate(ctx context.Context, from int64) error {
	return s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		pruned, err := getMeta(ctx, tx, metaPruned, 0)
		if err != nil {
			return err
		}
		if from < pruned {
			return errors.Wrapf(kvstore.ErrPruned, "truncate from %d, pruned below %d", from, pruned)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM kv_versions WHERE height >= $1`, from); err != nil {
			return errors.Wrap(err, "failed to delete versions")
		}
		current, err := getMeta(ctx, tx, metaHeight, kvstore.NoHeight)
		if err != nil {
			return err
		}
		if current >= from {
			return setMeta(ctx, tx, metaHeight, max(from-1, kvstore.NoHeight))
		}
		return nil
	})
}

func (s *Store) Prune(ctx context.Context, below int64) error {
	return s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		pruned, err := getMeta(ctx, tx, metaPruned, 0)
		if err != nil {
			return err
		}
		if below <= pruned {
			return nil
		}
		// drop every version shadowed by a newer one below the horizon
		if _, err := tx.Exec(ctx, `DELETE FROM kv_versions v USING kv_versions n
			WHERE v.key = n.key AND v.height < n.height AND n.height < $1`, below); err != nil {
			return errors.Wrap(err, "failed to prune shadowed versions")
		}
		// tombstones below the horizon no longer hide anything
		if _, err := tx.Exec(ctx, `DELETE FROM kv_versions WHERE height < $1 AND deleted`, below); err != nil {
			return errors.Wrap(err, "failed to prune tombstones")
		}
		return setMeta(ctx, tx, metaPruned, below)
	})
}

func (s *Store) Height(ctx context.Context) (int64, error) {
	return getMeta(ctx, s.db, metaHeight, kvstore.NoHeight)
}

func (s *Store) inTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "failed to commit")
}

type reader struct {
	ctx context.Context
	q   postgres.Queryable
}

func (r *reader) Get(key []byte) ([]byte, error) {
	var (
		value   []byte
		deleted bool
	)
	err := r.q.QueryRow(r.ctx, `SELECT value, deleted FROM kv_versions WHERE key = $1 ORDER BY height DESC LIMIT 1`, key).Scan(&value, &deleted)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && deleted) {
		return nil, errors.Wrapf(errs.NotFound, "key %x", key)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get key")
	}
	return value, nil
}

type entry struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

func (r *reader) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	rows, err := r.q.Query(r.ctx, `SELECT DISTINCT ON (key) key, value, deleted FROM kv_versions
		WHERE key >= $1 AND ($2::BYTEA IS NULL OR key < $2)
		ORDER BY key, height DESC`, prefixOrEmpty(prefix), kvstore.PrefixEnd(prefix))
	if err != nil {
		return errors.Wrap(err, "failed to iterate")
	}
	// collected up front so fn may issue queries on the same transaction
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entry])
	if err != nil {
		return errors.Wrap(err, "failed to scan rows")
	}
	for _, e := range entries {
		if e.Deleted {
			continue
		}
		if err := fn(e.Key, e.Value); err != nil {
			if errors.Is(err, kvstore.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

type writer struct {
	reader
	height int64
}

func (w *writer) Put(key, value []byte) error {
	return w.write(key, value, false)
}

func (w *writer) Delete(key []byte) error {
	return w.write(key, []byte{}, true)
}

func (w *writer) write(key, value []byte, deleted bool) error {
	if len(key) == 0 {
		return errors.Wrap(errs.InvalidArgument, "empty key")
	}
	if value == nil {
		value = []byte{}
	}
	_, err := w.q.Exec(w.ctx, `INSERT INTO kv_versions (key, height, value, deleted) VALUES ($1, $2, $3, $4)
		ON CONFLICT (key, height) DO UPDATE SET value = EXCLUDED.value, deleted = EXCLUDED.deleted`,
		key, w.height, value, deleted)
	return errors.Wrap(err, "failed to write key")
}

func prefixOrEmpty(prefix []byte) []byte {
	if prefix == nil {
		return []byte{}
	}
	return prefix
}

func getMeta(ctx context.Context, q postgres.Queryable, name string, def int64) (int64, error) {
	var v int64
	err := q.QueryRow(ctx, `SELECT value FROM kv_meta WHERE name = $1`, name).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read meta %s", name)
	}
	return v, nil
}

func setMeta(ctx context.Context, q postgres.Queryable, name string, v int64) error {
	_, err := q.Exec(ctx, `INSERT INTO kv_meta (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, name, v)
	return errors.Wrapf(err, "failed to write meta %s", name)
}
