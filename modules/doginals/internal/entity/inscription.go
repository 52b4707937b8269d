package entity

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gaze-network/uint128"
)

type Inscription struct {
	Id ordinals.InscriptionId
	// Number is the sequence number, assigned in creation order starting at zero.
	Number          uint64
	Sat             uint128.Uint128
	Inscription     ordinals.Inscription
	CreatedAtHeight int64
	CreatedAt       time.Time
	TxHash          chainhash.Hash

	// current location
	SatPoint      ordinals.SatPoint
	PkScript      []byte
	Lost          bool
	TransferCount uint32
	UpdatedHeight int64

	UnrecognizedEvenField bool
}

// PartialInscription is an envelope still being revealed across a chain of transactions.
// It is stored under the hash of the transaction that carried the latest chunks.
type PartialInscription struct {
	// Id is the inscription the envelope becomes, named after the first transaction of the chain.
	Id      ordinals.InscriptionId
	Partial ordinals.Partial
}
