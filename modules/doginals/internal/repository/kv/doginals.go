package kv

import (
	"bytes"
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/gaze-network/doginals-indexer/internal/kvstore"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gaze-network/uint128"
)

func (t *tx) GetLatestBlock(ctx context.Context) (types.BlockHeader, error) {
	block, err := kvstore.GetFunc(t.r, latestBlockKey, decodeIndexedBlock)
	if err != nil {
		return types.BlockHeader{}, errors.WithStack(err)
	}
	return types.BlockHeader{
		Hash:      block.Hash,
		Height:    block.Height,
		PrevBlock: block.PrevBlock,
		Timestamp: block.Timestamp,
	}, nil
}

func (t *tx) GetIndexedBlockByHeight(ctx context.Context, height int64) (*entity.IndexedBlock, error) {
	block, err := kvstore.GetFunc(t.r, indexedBlockKey(height), decodeIndexedBlock)
	return block, errors.WithStack(err)
}

func (t *tx) CreateIndexedBlock(ctx context.Context, block *entity.IndexedBlock) error {
	value := encodeIndexedBlock(block)
	if err := t.put(indexedBlockKey(block.Height), value); err != nil {
		return errors.Wrap(err, "failed to put indexed block")
	}
	return errors.Wrap(t.put(latestBlockKey, value), "failed to put latest block")
}

func (t *tx) GetStats(ctx context.Context) (*entity.Stats, error) {
	stats, err := kvstore.GetFunc(t.r, statsKey, decodeStats)
	return stats, errors.WithStack(err)
}

func (t *tx) PutStats(ctx context.Context, stats *entity.Stats) error {
	return t.put(statsKey, encodeStats(stats))
}

func (t *tx) GetIndexerState(ctx context.Context) (*entity.IndexerState, error) {
	state, err := kvstore.GetFunc(t.r, indexerStateKey, decodeIndexerState)
	return state, errors.WithStack(err)
}

func (t *tx) PutIndexerState(ctx context.Context, state *entity.IndexerState) error {
	return t.put(indexerStateKey, encodeIndexerState(state))
}

func (t *tx) GetInscriptionById(ctx context.Context, id ordinals.InscriptionId) (*entity.Inscription, error) {
	ins, err := kvstore.GetFunc(t.r, inscriptionKey(id), decodeInscription)
	return ins, errors.WithStack(err)
}

func (t *tx) GetInscriptionIdByNumber(ctx context.Context, number uint64) (ordinals.InscriptionId, error) {
	id, err := kvstore.GetFunc(t.r, numberKey(number), decodeInscriptionIdValue)
	return id, errors.WithStack(err)
}

func (t *tx) GetInscriptionIdBySat(ctx context.Context, sat uint128.Uint128) (ordinals.InscriptionId, error) {
	id, err := kvstore.GetFunc(t.r, satKey(sat), decodeInscriptionIdValue)
	return id, errors.WithStack(err)
}

func decodeInscriptionIdValue(data []byte) (ordinals.InscriptionId, error) {
	var id ordinals.InscriptionId
	err := id.UnmarshalBinary(data)
	return id, err
}

func (t *tx) CreateInscription(ctx context.Context, ins *entity.Inscription) error {
	id := ins.Id.Bytes()
	if err := t.put(satKey(ins.Sat), id); err != nil {
		return errors.Wrap(err, "failed to put sat index")
	}
	if err := t.put(numberKey(ins.Number), id); err != nil {
		return errors.Wrap(err, "failed to put number index")
	}
	return t.UpdateInscription(ctx, ins)
}

func (t *tx) UpdateInscription(ctx context.Context, ins *entity.Inscription) error {
	return errors.Wrap(t.put(inscriptionKey(ins.Id), encodeInscription(ins)), "failed to put inscription")
}

func (t *tx) GetPartialInscription(ctx context.Context, txHash chainhash.Hash) (*entity.PartialInscription, error) {
	partial, err := kvstore.GetFunc(t.r, partialInscriptionKey(txHash), decodePartialInscription)
	return partial, errors.WithStack(err)
}

func (t *tx) PutPartialInscription(ctx context.Context, txHash chainhash.Hash, partial *entity.PartialInscription) error {
	return errors.Wrap(t.put(partialInscriptionKey(txHash), encodePartialInscription(partial)), "failed to put partial inscription")
}

func (t *tx) DeletePartialInscription(ctx context.Context, txHash chainhash.Hash) error {
	return errors.Wrap(t.delete(partialInscriptionKey(txHash)), "failed to delete partial inscription")
}

func (t *tx) GetOutPointEntry(ctx context.Context, outPoint wire.OutPoint) (*entity.OutPointEntry, error) {
	entry, err := kvstore.GetFunc(t.r, outPointKey(outPoint), decodeOutPointEntry)
	return entry, errors.WithStack(err)
}

func (t *tx) PutOutPointEntry(ctx context.Context, outPoint wire.OutPoint, entry *entity.OutPointEntry) error {
	return t.put(outPointKey(outPoint), encodeOutPointEntry(entry))
}

func (t *tx) DeleteOutPointEntry(ctx context.Context, outPoint wire.OutPoint) error {
	return t.delete(outPointKey(outPoint))
}

func (t *tx) GetTransaction(ctx context.Context, txHash chainhash.Hash) (*wire.MsgTx, error) {
	msgTx, err := kvstore.GetFunc(t.r, transactionKey(txHash), func(data []byte) (*wire.MsgTx, error) {
		var msgTx wire.MsgTx
		if err := msgTx.Deserialize(bytes.NewReader(data)); err != nil {
			return nil, err
		}
		return &msgTx, nil
	})
	return msgTx, errors.WithStack(err)
}

func (t *tx) PutTransaction(ctx context.Context, msgTx *wire.MsgTx) error {
	var buf bytes.Buffer
	buf.Grow(msgTx.SerializeSize())
	if err := msgTx.Serialize(&buf); err != nil {
		return errors.Wrap(err, "failed to serialize transaction")
	}
	return t.put(transactionKey(msgTx.TxHash()), buf.Bytes())
}

func (t *tx) GetTickEntry(ctx context.Context, tick string) (*entity.TickEntry, error) {
	entry, err := kvstore.GetFunc(t.r, tickKey(tick), decodeTickEntry)
	return entry, errors.WithStack(err)
}

func (t *tx) PutTickEntry(ctx context.Context, entry *entity.TickEntry) error {
	return t.put(tickKey(entry.Tick), encodeTickEntry(entry))
}

func (t *tx) GetBalance(ctx context.Context, pkScript []byte, tick string) (*entity.Balance, error) {
	balance, err := kvstore.GetFunc(t.r, balanceKey(pkScript, tick), decodeBalance)
	return balance, errors.WithStack(err)
}

func (t *tx) GetBalancesByPkScript(ctx context.Context, pkScript []byte) ([]*entity.Balance, error) {
	balances := make([]*entity.Balance, 0)
	err := t.r.Iterate(balancePrefix(pkScript), func(key, value []byte) error {
		balance, err := decodeBalance(value)
		if err != nil {
			return errors.Wrapf(err, "decode balance %x", key)
		}
		balances = append(balances, balance)
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return balances, nil
}

func (t *tx) PutBalance(ctx context.Context, balance *entity.Balance) error {
	return t.put(balanceKey(balance.PkScript, balance.Tick), encodeBalance(balance))
}

func (t *tx) GetTransferableLog(ctx context.Context, id ordinals.InscriptionId) (*entity.TransferableLog, error) {
	log, err := kvstore.GetFunc(t.r, transferableLogKey(id), decodeTransferableLog)
	return log, errors.WithStack(err)
}

func (t *tx) GetTransferableLogsByPkScript(ctx context.Context, pkScript []byte) ([]*entity.TransferableLog, error) {
	prefix := transferableOwnerPrefix(pkScript)
	ids := make([]ordinals.InscriptionId, 0)
	err := t.r.Iterate(prefix, func(key, _ []byte) error {
		var id ordinals.InscriptionId
		if err := id.UnmarshalBinary(key[len(prefix):]); err != nil {
			return errors.WithStack(err)
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logs := make([]*entity.TransferableLog, 0, len(ids))
	for _, id := range ids {
		log, err := t.GetTransferableLog(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "owner index points to missing transferable log %s", id)
		}
		logs = append(logs, log)
	}
	return logs, nil
}

func (t *tx) PutTransferableLog(ctx context.Context, log *entity.TransferableLog) error {
	if err := t.put(transferableLogKey(log.InscriptionId), encodeTransferableLog(log)); err != nil {
		return errors.Wrap(err, "failed to put transferable log")
	}
	return errors.Wrap(t.put(transferableOwnerKey(log.Owner, log.InscriptionId), []byte{}), "failed to put owner index")
}

func (t *tx) DeleteTransferableLog(ctx context.Context, log *entity.TransferableLog) error {
	if err := t.delete(transferableLogKey(log.InscriptionId)); err != nil {
		return errors.Wrap(err, "failed to delete transferable log")
	}
	return errors.Wrap(t.delete(transferableOwnerKey(log.Owner, log.InscriptionId)), "failed to delete owner index")
}

func (t *tx) GetDrc20EventsByHeight(ctx context.Context, height int64) ([]*entity.Drc20Event, error) {
	events := make([]*entity.Drc20Event, 0)
	err := t.r.Iterate(drc20EventPrefix(height), func(key, value []byte) error {
		event, err := decodeDrc20Event(value)
		if err != nil {
			return errors.Wrapf(err, "decode drc20 event %x", key)
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return events, nil
}

func (t *tx) CreateDrc20Event(ctx context.Context, index uint32, event *entity.Drc20Event) error {
	return t.put(drc20EventKey(event.BlockHeight, index), encodeDrc20Event(event))
}
