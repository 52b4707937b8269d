package doginals

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/datagateway"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/drc20"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
)

// applyDrc20 feeds an inscription leaving tx to the drc-20 engine. A new inscription may carry an
// operation, an existing one may finalize a pending transfer. to is nil when sent as fee.
func (p *Processor) applyDrc20(ctx context.Context, dg datagateway.DoginalsDataGatewayWithTx, state *blockState, f *flotsam, tx *types.Transaction, to []byte) error {
	if p.drc20 == nil {
		return nil
	}
	inscription := f.inscription

	var (
		event *entity.Drc20Event
		err   error
	)
	if f.isNew {
		// operations are read from the inscription's own body, delegates are not followed
		event, err = p.drc20.Inscribe(ctx, dg, drc20.Inscribed{
			Id:          inscription.Id,
			Number:      inscription.Number,
			TxHash:      tx.TxHash,
			Height:      tx.BlockHeight,
			Timestamp:   state.header.Timestamp,
			ContentType: inscription.Inscription.ContentType,
			Content:     inscription.Inscription.Content,
			To:          to,
		})
	} else {
		event, err = p.drc20.Send(ctx, dg, drc20.Sent{
			Id:        inscription.Id,
			TxHash:    tx.TxHash,
			Height:    tx.BlockHeight,
			Timestamp: state.header.Timestamp,
			From:      f.from,
			To:        to,
		})
	}
	if err != nil {
		return errors.Wrapf(err, "failed to apply drc-20 operation of inscription %s", inscription.Id)
	}
	if event == nil {
		return nil
	}

	if err := dg.CreateDrc20Event(ctx, state.eventIndex, event); err != nil {
		return errors.Wrap(err, "failed to create drc-20 event")
	}
	state.eventIndex++
	if event.Valid {
		logger.DebugContext(ctx, "Applied drc-20 operation",
			slogx.String("event", "drc20_"+string(event.Type)),
			slogx.String("tick", event.Tick),
			slogx.Stringer("inscription_id", event.InscriptionId),
			slogx.String("amount", event.Amount.String()),
		)
	}
	return nil
}
