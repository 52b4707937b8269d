// Package kv implements the doginals datagateway on a versioned key-value store.
package kv

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/internal/kvstore"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/datagateway"
)

var _ datagateway.DoginalsDataGateway = (*Repository)(nil)

type Repository struct {
	store kvstore.Store
}

func NewRepository(store kvstore.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) View(ctx context.Context, fn func(dg datagateway.DoginalsReaderDataGateway) error) error {
	return r.store.View(ctx, func(kv kvstore.Reader) error {
		return fn(&tx{r: kv})
	})
}

func (r *Repository) Update(ctx context.Context, height int64, fn func(dg datagateway.DoginalsDataGatewayWithTx) error) error {
	return r.store.Update(ctx, height, func(kv kvstore.Writer) error {
		return fn(&tx{r: kv, w: kv})
	})
}

func (r *Repository) DeleteSinceHeight(ctx context.Context, height int64) error {
	return errors.Wrapf(r.store.Truncate(ctx, height), "failed to truncate store from height %d", height)
}

func (r *Repository) Prune(ctx context.Context, below int64) error {
	return errors.Wrapf(r.store.Prune(ctx, below), "failed to prune store below height %d", below)
}

// tx reads and, inside Update, writes one snapshot of the store. w is nil in View.
type tx struct {
	r kvstore.Reader
	w kvstore.Writer
}

var _ datagateway.DoginalsDataGatewayWithTx = (*tx)(nil)

func (t *tx) put(k, v []byte) error {
	if t.w == nil {
		return errors.New("write in a read-only transaction")
	}
	return errors.WithStack(t.w.Put(k, v))
}

func (t *tx) delete(k []byte) error {
	if t.w == nil {
		return errors.New("write in a read-only transaction")
	}
	return errors.WithStack(t.w.Delete(k))
}
