package entity

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/shopspring/decimal"
)

type TickEntry struct {
	Tick                    string
	OriginalTick            string
	TotalSupply             decimal.Decimal
	LimitPerMint            decimal.Decimal
	Decimals                uint16
	MintedAmount            decimal.Decimal
	DeployInscriptionId     ordinals.InscriptionId
	DeployInscriptionNumber uint64
	DeployedBy              []byte
	DeployedAt              time.Time
	DeployedAtHeight        int64
	LatestMintHeight        int64
}

// Remaining is the amount that can still be minted.
func (t *TickEntry) Remaining() decimal.Decimal {
	return t.TotalSupply.Sub(t.MintedAmount)
}

type Balance struct {
	PkScript            []byte
	Tick                string
	OverallBalance      decimal.Decimal
	TransferableBalance decimal.Decimal
	LastUpdatedAtHeight int64
}

// AvailableBalance is the part of the balance not earmarked by pending transfers.
func (b *Balance) AvailableBalance() decimal.Decimal {
	return b.OverallBalance.Sub(b.TransferableBalance)
}

// TransferableLog is a pending transfer: an inscribed amount waiting for its inscription to be sent.
type TransferableLog struct {
	InscriptionId     ordinals.InscriptionId
	InscriptionNumber uint64
	Tick              string
	Amount            decimal.Decimal
	Owner             []byte
	CreatedAtHeight   int64
}

type Drc20EventType string

const (
	Drc20EventTypeDeploy           Drc20EventType = "deploy"
	Drc20EventTypeMint             Drc20EventType = "mint"
	Drc20EventTypeInscribeTransfer Drc20EventType = "inscribe-transfer"
	Drc20EventTypeTransfer         Drc20EventType = "transfer"
)

// Drc20Event is an applied or rejected DRC-20 operation.
type Drc20Event struct {
	Type              Drc20EventType
	InscriptionId     ordinals.InscriptionId
	InscriptionNumber uint64
	Tick              string
	OriginalTick      string
	TxHash            chainhash.Hash
	BlockHeight       int64
	Timestamp         time.Time
	FromPkScript      []byte
	ToPkScript        []byte
	Amount            decimal.Decimal
	Valid             bool
	Reason            string
}
