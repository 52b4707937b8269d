package entity

import (
	"time"

	"github.com/gaze-network/doginals-indexer/common"
)

// IndexerState records the settings the index was built with. A mismatch at startup needs a reindex.
type IndexerState struct {
	CreatedAt              time.Time
	ClientVersion          string
	DBVersion              int32
	Network                common.Network
	FirstInscriptionHeight int64
	Drc20StartHeight       int64
	EnableDrc20            bool
}
