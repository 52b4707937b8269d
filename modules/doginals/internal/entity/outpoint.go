package entity

import (
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/sat"
)

// OutPointEntry is an unspent output with the sats it holds.
type OutPointEntry struct {
	Value        uint64
	PkScript     []byte
	SatRanges    sat.Ranges
	Inscriptions []OutPointInscription
}

// OutPointInscription is an inscription held by an output, at an offset into the output.
type OutPointInscription struct {
	Id     ordinals.InscriptionId
	Offset uint64
}
