package usecase

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/datagateway"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
)

func (u *Usecase) GetTickEntry(ctx context.Context, tick string) (*entity.TickEntry, error) {
	tick = strings.ToLower(tick)
	entry, err := view(ctx, u, func(dg datagateway.DoginalsReaderDataGateway) (*entity.TickEntry, error) {
		return dg.GetTickEntry(ctx, tick)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get tick %q", tick)
	}
	return entry, nil
}

func (u *Usecase) GetBalancesByPkScript(ctx context.Context, pkScript []byte) ([]*entity.Balance, error) {
	balances, err := view(ctx, u, func(dg datagateway.DoginalsReaderDataGateway) ([]*entity.Balance, error) {
		return dg.GetBalancesByPkScript(ctx, pkScript)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balances by pkscript")
	}
	return balances, nil
}

func (u *Usecase) GetTransferableLogsByPkScript(ctx context.Context, pkScript []byte) ([]*entity.TransferableLog, error) {
	logs, err := view(ctx, u, func(dg datagateway.DoginalsReaderDataGateway) ([]*entity.TransferableLog, error) {
		return dg.GetTransferableLogsByPkScript(ctx, pkScript)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transferable logs by pkscript")
	}
	return logs, nil
}

func (u *Usecase) GetDrc20EventsByHeight(ctx context.Context, height int64) ([]*entity.Drc20Event, error) {
	events, err := view(ctx, u, func(dg datagateway.DoginalsReaderDataGateway) ([]*entity.Drc20Event, error) {
		return dg.GetDrc20EventsByHeight(ctx, height)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get drc-20 events at height %d", height)
	}
	return events, nil
}
