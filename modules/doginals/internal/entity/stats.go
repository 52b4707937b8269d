package entity

import "github.com/gaze-network/uint128"

// Stats are counters that roll back with the rest of the index on a reorg.
type Stats struct {
	// NextNumber is the sequence number of the next inscription.
	NextNumber uint64
	LostSats   uint128.Uint128
}
