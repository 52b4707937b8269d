package usecase

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/datagateway"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/epoch"
)

// TransactionFetcher reads transactions from the chain when the tx index is disabled.
type TransactionFetcher interface {
	GetRawTransaction(ctx context.Context, txHash chainhash.Hash) (*wire.MsgTx, error)
}

type Usecase struct {
	doginalsDg      datagateway.DoginalsDataGateway
	txFetcher       TransactionFetcher
	epochs          *epoch.Table
	maxDelegateHops int
}

func New(doginalsDg datagateway.DoginalsDataGateway, txFetcher TransactionFetcher, epochs *epoch.Table, maxDelegateHops int) *Usecase {
	return &Usecase{
		doginalsDg:      doginalsDg,
		txFetcher:       txFetcher,
		epochs:          epochs,
		maxDelegateHops: maxDelegateHops,
	}
}

// view runs fn against the committed state and returns what fn returns.
func view[T any](ctx context.Context, u *Usecase, fn func(dg datagateway.DoginalsReaderDataGateway) (T, error)) (T, error) {
	var result T
	err := u.doginalsDg.View(ctx, func(dg datagateway.DoginalsReaderDataGateway) error {
		var err error
		result, err = fn(dg)
		return err
	})
	return result, err
}
