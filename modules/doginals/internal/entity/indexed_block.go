package entity

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type IndexedBlock struct {
	Height    int64
	Hash      chainhash.Hash
	PrevBlock chainhash.Hash
	Timestamp time.Time
}
