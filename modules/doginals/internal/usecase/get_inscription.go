package usecase

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/datagateway"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/epoch"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gaze-network/uint128"
)

func (u *Usecase) GetInscriptionById(ctx context.Context, id ordinals.InscriptionId) (*entity.Inscription, error) {
	inscription, err := view(ctx, u, func(dg datagateway.DoginalsReaderDataGateway) (*entity.Inscription, error) {
		return dg.GetInscriptionById(ctx, id)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get inscription %s", id)
	}
	return inscription, nil
}

func (u *Usecase) GetInscriptionByNumber(ctx context.Context, number uint64) (*entity.Inscription, error) {
	inscription, err := view(ctx, u, func(dg datagateway.DoginalsReaderDataGateway) (*entity.Inscription, error) {
		id, err := dg.GetInscriptionIdByNumber(ctx, number)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return dg.GetInscriptionById(ctx, id)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get inscription number %d", number)
	}
	return inscription, nil
}

// SatInfo locates a sat in the issuance schedule.
type SatInfo struct {
	Sat         uint128.Uint128
	Height      int64
	Epoch       int64
	Offset      uint64 // position of the sat within the subsidy of Height
	Rarity      epoch.Rarity
	Inscription *entity.Inscription
}

// Decimal is the height.offset notation of the sat.
func (s *SatInfo) Decimal() string {
	return fmt.Sprintf("%d.%d", s.Height, s.Offset)
}

// GetSat returns the block that issued sat and the inscription bound to it, if any.
func (u *Usecase) GetSat(ctx context.Context, sat uint128.Uint128) (*SatInfo, error) {
	height, ok := u.epochs.HeightOfSat(sat)
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "sat %s is beyond the supply", sat)
	}
	rarity, _ := u.epochs.Rarity(sat)
	info := &SatInfo{
		Sat:    sat,
		Height: height,
		Epoch:  int64(u.epochs.Epoch(height)),
		Offset: sat.Sub(u.epochs.StartingSat(height)).Lo,
		Rarity: rarity,
	}

	inscription, err := view(ctx, u, func(dg datagateway.DoginalsReaderDataGateway) (*entity.Inscription, error) {
		id, err := dg.GetInscriptionIdBySat(ctx, sat)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return dg.GetInscriptionById(ctx, id)
	})
	if err != nil && !errors.Is(err, errs.NotFound) {
		return nil, errors.Wrapf(err, "failed to get inscription on sat %s", sat)
	}
	info.Inscription = inscription
	return info, nil
}

// ResolveContent returns the content served by id, following delegates.
func (u *Usecase) ResolveContent(ctx context.Context, id ordinals.InscriptionId) (ordinals.Content, error) {
	var content ordinals.Content
	err := u.doginalsDg.View(ctx, func(dg datagateway.DoginalsReaderDataGateway) error {
		var err error
		content, err = ordinals.ResolveContent(ctx, id, func(ctx context.Context, id ordinals.InscriptionId) (*ordinals.Inscription, error) {
			inscription, err := dg.GetInscriptionById(ctx, id)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			return &inscription.Inscription, nil
		}, u.maxDelegateHops)
		return err
	})
	if err != nil {
		return ordinals.Content{}, errors.Wrapf(err, "failed to resolve content of %s", id)
	}
	return content, nil
}

// GetTransaction reads the tx index first and asks the node when the tx is not indexed.
func (u *Usecase) GetTransaction(ctx context.Context, txHash chainhash.Hash) (*wire.MsgTx, error) {
	tx, err := view(ctx, u, func(dg datagateway.DoginalsReaderDataGateway) (*wire.MsgTx, error) {
		return dg.GetTransaction(ctx, txHash)
	})
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, errs.NotFound) || u.txFetcher == nil {
		return nil, errors.Wrapf(err, "failed to get transaction %s", txHash)
	}

	tx, err = u.txFetcher.GetRawTransaction(ctx, txHash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch transaction %s", txHash)
	}
	return tx, nil
}
