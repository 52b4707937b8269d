package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/datagateway"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
)

func (u *Usecase) GetLatestBlock(ctx context.Context) (types.BlockHeader, error) {
	header, err := view(ctx, u, func(dg datagateway.DoginalsReaderDataGateway) (types.BlockHeader, error) {
		return dg.GetLatestBlock(ctx)
	})
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "failed to get latest block")
	}
	return header, nil
}

func (u *Usecase) GetStats(ctx context.Context) (*entity.Stats, error) {
	stats, err := view(ctx, u, func(dg datagateway.DoginalsReaderDataGateway) (*entity.Stats, error) {
		return dg.GetStats(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get stats")
	}
	return stats, nil
}
