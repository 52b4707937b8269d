package epoch

import "github.com/gaze-network/uint128"

// Rarity grades a sat by the issuance boundary it starts.
type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon" // first sat of a block
	RarityEpic     Rarity = "epic"     // first sat of an epoch
	RarityMythic   Rarity = "mythic"   // first sat ever issued
)

// Rarity returns the rarity of sat. Sats beyond the schedule return false.
//
// Dogecoin retargets every block and its subsidy schedule has no cycles, so
// there are no rare or legendary sats.
func (t *Table) Rarity(sat uint128.Uint128) (Rarity, bool) {
	height, ok := t.HeightOfSat(sat)
	if !ok {
		return "", false
	}
	reward := t.Reward(height)
	switch {
	case sat.IsZero():
		return RarityMythic, true
	case !sat.Equals(reward.StartingSat):
		return RarityCommon, true
	case height == 0 || t.Epoch(height-1) != reward.Epoch:
		return RarityEpic, true
	}
	return RarityUncommon, true
}
