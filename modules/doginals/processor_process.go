package doginals

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/datagateway"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/sat"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
)

// Process implements indexer.Processor.
func (p *Processor) Process(ctx context.Context, blocks []*types.Block) error {
	for _, block := range blocks {
		ctx := logger.WithContext(ctx, slogx.Int64("height", block.Header.Height))
		logger.DebugContext(ctx, "Processing new block", slogx.Int("txs", len(block.Transactions)))

		var state *blockState
		if err := p.doginalsDg.Update(ctx, block.Header.Height, func(dg datagateway.DoginalsDataGatewayWithTx) error {
			var err error
			state, err = p.processBlock(ctx, dg, block)
			return err
		}); err != nil {
			return errors.Wrapf(err, "failed to process block %d", block.Header.Height)
		}

		// the block is committed, its outputs can be served from the cache
		for outPoint := range state.spent {
			p.outPointCache.Remove(outPoint)
		}
		for outPoint, entry := range state.created {
			if _, spent := state.spent[outPoint]; !spent {
				p.outPointCache.Add(outPoint, entry)
			}
		}

		logger.DebugContext(ctx, "Inserted new block",
			slogx.Int("new_inscriptions", state.newInscriptions),
			slogx.Int("drc20_events", int(state.eventIndex)),
		)
	}
	if len(blocks) > 0 {
		if err := p.prune(ctx, blocks[len(blocks)-1].Header.Height); err != nil {
			return errors.Wrap(err, "failed to prune")
		}
	}
	return nil
}

// blockState is what the transactions of one block share while it is being indexed.
type blockState struct {
	header  types.BlockHeader
	tracker *sat.BlockTracker
	stats   *entity.Stats

	created map[wire.OutPoint]*entity.OutPointEntry
	spent   map[wire.OutPoint]struct{}

	// inscriptions that left their transaction as fee, claimed by the coinbase
	fees []*flotsam

	eventIndex      uint32
	newInscriptions int
}

func (p *Processor) processBlock(ctx context.Context, dg datagateway.DoginalsDataGatewayWithTx, block *types.Block) (*blockState, error) {
	if len(block.Transactions) == 0 || !block.Transactions[0].IsCoinbase() {
		return nil, errors.Wrap(errs.InvalidArgument, "block does not start with a coinbase")
	}

	stats, err := dg.GetStats(ctx)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return nil, errors.Wrap(err, "failed to get stats")
		}
		stats = &entity.Stats{LostSats: uint128.Zero}
	}
	state := &blockState{
		header:  block.Header,
		tracker: p.tracker.NewBlock(block.Header.Height),
		stats:   stats,
		created: make(map[wire.OutPoint]*entity.OutPointEntry),
		spent:   make(map[wire.OutPoint]struct{}),
	}

	// the coinbase is settled last, after every fee of the block is known
	for _, tx := range block.Transactions[1:] {
		if err := p.processTx(ctx, dg, state, tx); err != nil {
			return nil, errors.Wrapf(err, "failed to process tx %s", tx.TxHash)
		}
	}
	if err := p.processCoinbase(ctx, dg, state, block.Transactions[0]); err != nil {
		return nil, errors.Wrap(err, "failed to process coinbase")
	}

	if p.config.EnableTxIndex {
		for _, tx := range block.Transactions {
			if err := dg.PutTransaction(ctx, tx.MsgTx()); err != nil {
				return nil, errors.Wrap(err, "failed to put transaction")
			}
		}
	}
	if err := dg.PutStats(ctx, state.stats); err != nil {
		return nil, errors.Wrap(err, "failed to put stats")
	}
	if err := dg.CreateIndexedBlock(ctx, &entity.IndexedBlock{
		Height:    block.Header.Height,
		Hash:      block.Header.Hash,
		PrevBlock: block.Header.PrevBlock,
		Timestamp: block.Header.Timestamp,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to create indexed block")
	}
	return state, nil
}

// spendOutPoint returns the entry of an unspent output and marks it spent.
func (p *Processor) spendOutPoint(ctx context.Context, dg datagateway.DoginalsDataGatewayWithTx, state *blockState, outPoint wire.OutPoint) (*entity.OutPointEntry, error) {
	if _, ok := state.spent[outPoint]; ok {
		return nil, errors.Wrapf(errs.InvalidArgument, "output %s spent twice", outPoint)
	}
	entry, ok := state.created[outPoint]
	if !ok {
		entry, ok = p.outPointCache.Get(outPoint)
	}
	if !ok {
		var err error
		entry, err = dg.GetOutPointEntry(ctx, outPoint)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				return nil, errors.Wrapf(errs.Corrupted, "unspent output %s is not indexed", outPoint)
			}
			return nil, errors.Wrap(err, "failed to get outpoint entry")
		}
	}
	if err := dg.DeleteOutPointEntry(ctx, outPoint); err != nil {
		return nil, errors.Wrap(err, "failed to delete outpoint entry")
	}
	state.spent[outPoint] = struct{}{}
	return entry, nil
}

// createOutPoints stores the outputs of a transaction with the sats and inscriptions they hold.
// Unspendable outputs are not stored.
func (p *Processor) createOutPoints(ctx context.Context, dg datagateway.DoginalsDataGatewayWithTx, state *blockState, tx *types.Transaction, ranges []sat.Ranges, placed map[uint32][]entity.OutPointInscription) error {
	for i, txOut := range tx.TxOut {
		if txOut.IsOpReturn() {
			continue
		}
		outPoint := wire.OutPoint{Hash: tx.TxHash, Index: uint32(i)}
		entry := &entity.OutPointEntry{
			Value:        uint64(txOut.Value),
			PkScript:     txOut.PkScript,
			SatRanges:    ranges[i],
			Inscriptions: placed[uint32(i)],
		}
		if err := dg.PutOutPointEntry(ctx, outPoint, entry); err != nil {
			return errors.Wrap(err, "failed to put outpoint entry")
		}
		state.created[outPoint] = entry
	}
	return nil
}

// outputValues returns the value of each output. Negative values are rejected.
func outputValues(tx *types.Transaction) ([]uint64, error) {
	values := make([]uint64, len(tx.TxOut))
	for i, txOut := range tx.TxOut {
		if txOut.Value < 0 {
			return nil, errors.Wrapf(errs.InvalidArgument, "output %d has negative value", i)
		}
		values[i] = uint64(txOut.Value)
	}
	return values, nil
}

// lostSatPoint is where an inscription on a lost sat is recorded: the null outpoint, at the
// position of the sat among every sat lost so far.
func lostSatPoint(offset uint64) ordinals.SatPoint {
	return ordinals.SatPoint{Offset: offset}
}
