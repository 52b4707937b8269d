package sat

import (
	"testing"

	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/epoch"
	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rng(start, end uint64) Range {
	return Range{Start: uint128.From64(start), End: uint128.From64(end)}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		inputs   []Ranges
		values   []uint64
		expected []Ranges
		rest     Ranges
		err      bool
	}{
		{
			name:     "one to one",
			inputs:   []Ranges{{rng(0, 10)}},
			values:   []uint64{10},
			expected: []Ranges{{rng(0, 10)}},
		},
		{
			name:     "split mid range",
			inputs:   []Ranges{{rng(0, 10)}},
			values:   []uint64{3, 7},
			expected: []Ranges{{rng(0, 3)}, {rng(3, 10)}},
		},
		{
			name:     "concatenate inputs in order",
			inputs:   []Ranges{{rng(50, 55)}, {rng(10, 12), rng(20, 25)}},
			values:   []uint64{6, 5},
			expected: []Ranges{{rng(50, 55), rng(10, 11)}, {rng(11, 12), rng(20, 24)}},
			rest:     Ranges{rng(24, 25)},
		},
		{
			name:     "zero value output",
			inputs:   []Ranges{{rng(0, 4)}},
			values:   []uint64{0, 4},
			expected: []Ranges{nil, {rng(0, 4)}},
		},
		{
			name:   "outputs exceed inputs",
			inputs: []Ranges{{rng(0, 4)}},
			values: []uint64{5},
			err:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outs, rest, err := Split(tt.inputs, tt.values)
			if tt.err {
				assert.ErrorIs(t, err, ErrConservation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, outs)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestSplitDoesNotMutateInputs(t *testing.T) {
	inputs := []Ranges{{rng(0, 10)}}
	_, _, err := Split(inputs, []uint64{4})
	require.NoError(t, err)
	assert.Equal(t, rng(0, 10), inputs[0][0])
}

func TestLocateAndOffset(t *testing.T) {
	rs := Ranges{rng(100, 103), rng(7, 9)}
	tests := []struct {
		offset uint64
		sat    uint64
		ok     bool
	}{
		{0, 100, true},
		{2, 102, true},
		{3, 7, true},
		{4, 8, true},
		{5, 0, false},
	}
	for _, tt := range tests {
		sat, ok := rs.Locate(tt.offset)
		assert.Equal(t, tt.ok, ok, "offset %d", tt.offset)
		if !ok {
			continue
		}
		assert.Equal(t, uint128.From64(tt.sat), sat)

		offset, ok := rs.Offset(sat)
		assert.True(t, ok)
		assert.Equal(t, tt.offset, offset)
	}
	assert.EqualValues(t, 5, rs.Len())
}

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	table, err := epoch.New([]uint64{100}, []epoch.Era{{StartHeight: 1, Subsidy: 50}}, 1_000)
	require.NoError(t, err)
	return NewTracker(table)
}

func TestTrackerBlock(t *testing.T) {
	tracker := newTracker(t)

	t.Run("coinbase only", func(t *testing.T) {
		res, err := tracker.Block(0, []TxFlow{{Outputs: []uint64{60, 40}}})
		require.NoError(t, err)
		assert.Equal(t, []Ranges{{rng(0, 60)}, {rng(60, 100)}}, res.Txs[0].Outputs)
		assert.Empty(t, res.Lost)
	})

	t.Run("fees follow subsidy in tx order", func(t *testing.T) {
		// height 2 issues [150, 200)
		res, err := tracker.Block(2, []TxFlow{
			{Outputs: []uint64{50 + 3 + 2}},
			{Inputs: []Ranges{{rng(0, 10)}}, Outputs: []uint64{7}},
			{Inputs: []Ranges{{rng(20, 25)}}, Outputs: []uint64{3}},
		})
		require.NoError(t, err)
		assert.Equal(t, Ranges{rng(7, 10)}, res.Txs[1].Fee)
		assert.Equal(t, Ranges{rng(23, 25)}, res.Txs[2].Fee)
		assert.Equal(t, []Ranges{{rng(150, 200), rng(7, 10), rng(23, 25)}}, res.Txs[0].Outputs)
	})

	t.Run("unclaimed sats are lost", func(t *testing.T) {
		res, err := tracker.Block(1, []TxFlow{{Outputs: []uint64{20}}})
		require.NoError(t, err)
		assert.Equal(t, Ranges{rng(120, 150)}, res.Lost)
	})

	t.Run("coinbase overclaims", func(t *testing.T) {
		_, err := tracker.Block(1, []TxFlow{{Outputs: []uint64{51}}})
		assert.ErrorIs(t, err, ErrConservation)
	})

	t.Run("tx spends more than its inputs", func(t *testing.T) {
		_, err := tracker.Block(1, []TxFlow{
			{Outputs: []uint64{50}},
			{Inputs: []Ranges{{rng(0, 5)}}, Outputs: []uint64{6}},
		})
		assert.ErrorIs(t, err, ErrConservation)
	})
}

// sum of output ranges + lost = sum of input ranges + subsidy, for every block
func TestTrackerConservation(t *testing.T) {
	tracker := newTracker(t)
	res, err := tracker.Block(3, []TxFlow{
		{Outputs: []uint64{10, 30}},
		{Inputs: []Ranges{{rng(0, 10)}, {rng(40, 45)}}, Outputs: []uint64{1, 2, 3}},
		{Inputs: []Ranges{{rng(1000, 1100)}}, Outputs: []uint64{99}},
	})
	require.NoError(t, err)

	var in, out uint64 = 10 + 5 + 100, 0
	for _, tx := range res.Txs {
		for _, o := range tx.Outputs {
			out += o.Len()
		}
	}
	assert.Equal(t, in+res.Subsidy, out+res.Lost.Len())
}

func TestBlockTrackerSpendsSameBlockOutputs(t *testing.T) {
	tracker := newTracker(t)
	block := tracker.NewBlock(1)

	first, err := block.Spend(TxFlow{Inputs: []Ranges{{rng(0, 10)}}, Outputs: []uint64{4, 5}})
	require.NoError(t, err)
	assert.Equal(t, []Ranges{{rng(0, 4)}, {rng(4, 9)}}, first.Outputs)

	second, err := block.Spend(TxFlow{Inputs: []Ranges{first.Outputs[1]}, Outputs: []uint64{3}})
	require.NoError(t, err)
	assert.Equal(t, Ranges{rng(7, 9)}, second.Fee)

	// height 1 issues [100, 150)
	coinbase, lost, err := block.Coinbase([]uint64{50 + 1 + 2})
	require.NoError(t, err)
	assert.Empty(t, lost)
	assert.Equal(t, []Ranges{{rng(100, 150), rng(9, 10), rng(7, 9)}}, coinbase.Outputs)

	_, _, err = block.Coinbase([]uint64{1})
	assert.Error(t, err)
}
