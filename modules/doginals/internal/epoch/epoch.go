// Package epoch maps block heights to block subsidies and to the first sat
// mined at each height.
//
// Heights below the first scheduled era each have their own epoch, with a
// subsidy taken from a literal table. From there on the subsidy follows a fixed
// list of eras, the last one lasting forever.
package epoch

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/uint128"
	lru "github.com/hashicorp/golang-lru/v2"
)

// COIN is the number of sats in one DOGE.
const COIN uint64 = 100_000_000

// DefaultMaxHeight is the default upper bound for valid heights.
const DefaultMaxHeight int64 = 100_000_000

const cacheSize = 1024

// Era is a range of heights sharing one subsidy. It lasts until the next era starts.
type Era struct {
	StartHeight int64
	Subsidy     uint64
}

// MainnetEras is the Dogecoin schedule after the random-reward period.
var MainnetEras = []Era{
	{StartHeight: 145_000, Subsidy: 250_000 * COIN},
	{StartHeight: 200_000, Subsidy: 125_000 * COIN},
	{StartHeight: 300_000, Subsidy: 62_500 * COIN},
	{StartHeight: 400_000, Subsidy: 31_250 * COIN},
	{StartHeight: 500_000, Subsidy: 15_625 * COIN},
	{StartHeight: 600_000, Subsidy: 10_000 * COIN},
}

// TestnetEras is the testnet schedule after the random-reward period. Testnet
// switches to simplified rewards at the same height and halves on the same
// interval as mainnet, so only its random rewards differ.
var TestnetEras = MainnetEras

// Epoch identifies a subsidy period. Epoch n < len(bootstrap) is the single height n.
type Epoch int64

// Reward is what a block at Height issues.
type Reward struct {
	Height      int64
	Epoch       Epoch
	Subsidy     uint64
	StartingSat uint128.Uint128
}

// End returns the first sat after the block subsidy.
func (r Reward) End() uint128.Uint128 {
	return r.StartingSat.Add64(r.Subsidy)
}

type Table struct {
	bootstrap []uint64
	eras      []Era
	maxHeight int64

	// bootstrapStart[h] is the first sat of bootstrap height h, the last entry
	// is the first sat of eras[0].
	bootstrapStart []uint128.Uint128
	eraStart       []uint128.Uint128

	cache *lru.Cache[int64, Reward]
}

// New builds a table. bootstrap holds the subsidy of every height below
// eras[0].StartHeight. Heights above maxHeight are invalid.
func New(bootstrap []uint64, eras []Era, maxHeight int64) (*Table, error) {
	if len(eras) == 0 {
		return nil, errors.Wrap(errs.InvalidArgument, "at least one era is required")
	}
	if eras[0].StartHeight != int64(len(bootstrap)) {
		return nil, errors.Wrapf(errs.InvalidArgument, "first era starts at %d but %d bootstrap subsidies were given", eras[0].StartHeight, len(bootstrap))
	}
	for i := 1; i < len(eras); i++ {
		if eras[i].StartHeight <= eras[i-1].StartHeight {
			return nil, errors.Wrapf(errs.InvalidArgument, "era %d does not start after era %d", i, i-1)
		}
	}
	if maxHeight < eras[len(eras)-1].StartHeight {
		return nil, errors.Wrapf(errs.InvalidArgument, "max height %d is below the last era", maxHeight)
	}

	t := &Table{
		bootstrap:      bootstrap,
		eras:           eras,
		maxHeight:      maxHeight,
		bootstrapStart: make([]uint128.Uint128, len(bootstrap)+1),
		eraStart:       make([]uint128.Uint128, len(eras)),
	}
	for h, subsidy := range bootstrap {
		t.bootstrapStart[h+1] = t.bootstrapStart[h].Add64(subsidy)
	}
	t.eraStart[0] = t.bootstrapStart[len(bootstrap)]
	for i := 1; i < len(eras); i++ {
		blocks := uint64(eras[i].StartHeight - eras[i-1].StartHeight)
		t.eraStart[i] = t.eraStart[i-1].Add(uint128.From64(eras[i-1].Subsidy).Mul64(blocks))
	}

	cache, err := lru.New[int64, Reward](cacheSize)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	t.cache = cache
	return t, nil
}

// Reward returns the subsidy and starting sat of height. It panics on an
// out-of-range height.
func (t *Table) Reward(height int64) Reward {
	if height < 0 || height > t.maxHeight {
		panic(fmt.Sprintf("epoch: height %d out of range [0, %d]", height, t.maxHeight))
	}
	if r, ok := t.cache.Get(height); ok {
		return r
	}

	var r Reward
	if height < int64(len(t.bootstrap)) {
		r = Reward{
			Height:      height,
			Epoch:       Epoch(height),
			Subsidy:     t.bootstrap[height],
			StartingSat: t.bootstrapStart[height],
		}
	} else {
		i := t.eraIndex(height)
		era := t.eras[i]
		r = Reward{
			Height:      height,
			Epoch:       Epoch(len(t.bootstrap) + i),
			Subsidy:     era.Subsidy,
			StartingSat: t.eraStart[i].Add(uint128.From64(era.Subsidy).Mul64(uint64(height - era.StartHeight))),
		}
	}
	t.cache.Add(height, r)
	return r
}

func (t *Table) Subsidy(height int64) uint64 {
	return t.Reward(height).Subsidy
}

func (t *Table) StartingSat(height int64) uint128.Uint128 {
	return t.Reward(height).StartingSat
}

func (t *Table) Epoch(height int64) Epoch {
	return t.Reward(height).Epoch
}

// HeightOfSat returns the height whose subsidy issued sat. Sats past maxHeight
// return false.
func (t *Table) HeightOfSat(sat uint128.Uint128) (int64, bool) {
	if sat.Cmp(t.eraStart[0]) < 0 {
		// first h whose start is beyond sat, minus one
		h := sort.Search(len(t.bootstrapStart), func(i int) bool {
			return t.bootstrapStart[i].Cmp(sat) > 0
		}) - 1
		return int64(h), true
	}

	i := sort.Search(len(t.eraStart), func(i int) bool {
		return t.eraStart[i].Cmp(sat) > 0
	}) - 1
	era := t.eras[i]
	if era.Subsidy == 0 {
		return 0, false
	}
	offset, _ := sat.Sub(t.eraStart[i]).QuoRem64(era.Subsidy)
	if offset.Hi != 0 || offset.Lo > uint64(t.maxHeight) {
		return 0, false
	}
	height := era.StartHeight + int64(offset.Lo)
	if i+1 < len(t.eras) && height >= t.eras[i+1].StartHeight {
		return 0, false
	}
	if height > t.maxHeight {
		return 0, false
	}
	return height, true
}

func (t *Table) eraIndex(height int64) int {
	return sort.Search(len(t.eras), func(i int) bool {
		return t.eras[i].StartHeight > height
	}) - 1
}
