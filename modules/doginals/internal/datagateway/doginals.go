package datagateway

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gaze-network/uint128"
)

// DoginalsDataGateway is the versioned store behind the indexer. Every write belongs to the
// block height of the Update it was made in.
type DoginalsDataGateway interface {
	// View runs fn against the last committed block.
	View(ctx context.Context, fn func(dg DoginalsReaderDataGateway) error) error

	// Update runs fn in one atomic commit stamped with height. All writes performed in fn are
	// discarded if fn returns an error.
	Update(ctx context.Context, height int64, fn func(dg DoginalsDataGatewayWithTx) error) error

	// DeleteSinceHeight drops every write made at or above height.
	DeleteSinceHeight(ctx context.Context, height int64) error

	// Prune drops overwritten versions below height. Heights below it can no longer be reverted.
	Prune(ctx context.Context, below int64) error
}

type DoginalsDataGatewayWithTx interface {
	DoginalsReaderDataGateway
	DoginalsWriterDataGateway
}

type DoginalsReaderDataGateway interface {
	GetLatestBlock(ctx context.Context) (types.BlockHeader, error)
	GetIndexedBlockByHeight(ctx context.Context, height int64) (*entity.IndexedBlock, error)
	GetStats(ctx context.Context) (*entity.Stats, error)
	GetIndexerState(ctx context.Context) (*entity.IndexerState, error)

	GetInscriptionById(ctx context.Context, id ordinals.InscriptionId) (*entity.Inscription, error)
	GetInscriptionIdByNumber(ctx context.Context, number uint64) (ordinals.InscriptionId, error)
	GetInscriptionIdBySat(ctx context.Context, sat uint128.Uint128) (ordinals.InscriptionId, error)
	GetPartialInscription(ctx context.Context, txHash chainhash.Hash) (*entity.PartialInscription, error)
	GetOutPointEntry(ctx context.Context, outPoint wire.OutPoint) (*entity.OutPointEntry, error)
	GetTransaction(ctx context.Context, txHash chainhash.Hash) (*wire.MsgTx, error)

	GetTickEntry(ctx context.Context, tick string) (*entity.TickEntry, error)
	GetBalance(ctx context.Context, pkScript []byte, tick string) (*entity.Balance, error)
	GetBalancesByPkScript(ctx context.Context, pkScript []byte) ([]*entity.Balance, error)
	GetTransferableLog(ctx context.Context, id ordinals.InscriptionId) (*entity.TransferableLog, error)
	GetTransferableLogsByPkScript(ctx context.Context, pkScript []byte) ([]*entity.TransferableLog, error)
	GetDrc20EventsByHeight(ctx context.Context, height int64) ([]*entity.Drc20Event, error)
}

type DoginalsWriterDataGateway interface {
	// CreateIndexedBlock records the block and makes it the latest block.
	CreateIndexedBlock(ctx context.Context, block *entity.IndexedBlock) error
	PutStats(ctx context.Context, stats *entity.Stats) error
	PutIndexerState(ctx context.Context, state *entity.IndexerState) error

	// CreateInscription stores a new inscription together with its number and sat indexes.
	CreateInscription(ctx context.Context, inscription *entity.Inscription) error
	// UpdateInscription stores the new location of an existing inscription.
	UpdateInscription(ctx context.Context, inscription *entity.Inscription) error
	// PutPartialInscription stores a partial envelope under the transaction that carried its latest chunks.
	PutPartialInscription(ctx context.Context, txHash chainhash.Hash, partial *entity.PartialInscription) error
	DeletePartialInscription(ctx context.Context, txHash chainhash.Hash) error
	PutOutPointEntry(ctx context.Context, outPoint wire.OutPoint, entry *entity.OutPointEntry) error
	DeleteOutPointEntry(ctx context.Context, outPoint wire.OutPoint) error
	PutTransaction(ctx context.Context, tx *wire.MsgTx) error

	PutTickEntry(ctx context.Context, entry *entity.TickEntry) error
	PutBalance(ctx context.Context, balance *entity.Balance) error
	PutTransferableLog(ctx context.Context, log *entity.TransferableLog) error
	DeleteTransferableLog(ctx context.Context, log *entity.TransferableLog) error
	// CreateDrc20Event stores the event as the index-th event of its block.
	CreateDrc20Event(ctx context.Context, index uint32, event *entity.Drc20Event) error
}
