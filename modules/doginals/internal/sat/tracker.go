package sat

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/epoch"
	"github.com/gaze-network/uint128"
)

// TxFlow is the sat view of one transaction: the ranges held by each spent
// output in input order, and the value of each created output.
// A coinbase has no inputs.
type TxFlow struct {
	Inputs  []Ranges
	Outputs []uint64
}

type TxResult struct {
	Outputs []Ranges
	// Fee is what the transaction leaves to the coinbase.
	Fee Ranges
}

type BlockResult struct {
	Height  int64
	Subsidy uint64
	// Txs is index-aligned with the block's transactions.
	Txs []TxResult
	// Lost holds sats the coinbase did not claim.
	Lost Ranges
}

type Tracker struct {
	epochs *epoch.Table
}

func NewTracker(epochs *epoch.Table) *Tracker {
	return &Tracker{epochs: epochs}
}

// BlockTracker accumulates the fees of one block. Transactions are fed in block order,
// so a transaction may spend outputs created earlier in the same block. The coinbase is settled last.
type BlockTracker struct {
	height  int64
	reward  epoch.Reward
	fees    []Ranges
	in, out uint64
	settled bool
}

func (t *Tracker) NewBlock(height int64) *BlockTracker {
	reward := t.epochs.Reward(height)
	return &BlockTracker{
		height: height,
		reward: reward,
		fees:   []Ranges{{NewRange(reward.StartingSat, reward.Subsidy)}},
	}
}

func (b *BlockTracker) Subsidy() uint64 {
	return b.reward.Subsidy
}

// Spend splits the input ranges of a non-coinbase transaction across its outputs.
func (b *BlockTracker) Spend(tx TxFlow) (TxResult, error) {
	if b.settled {
		return TxResult{}, errors.New("block already settled")
	}
	outputs, fee, err := Split(tx.Inputs, tx.Outputs)
	if err != nil {
		return TxResult{}, errors.WithStack(err)
	}
	b.fees = append(b.fees, fee)
	for _, r := range tx.Inputs {
		b.in += r.Len()
	}
	b.out += sumValues(tx.Outputs)
	return TxResult{Outputs: outputs, Fee: fee}, nil
}

// Coinbase hands the subsidy and every fee to the coinbase outputs and checks the block balances.
func (b *BlockTracker) Coinbase(values []uint64) (result TxResult, lost Ranges, err error) {
	if b.settled {
		return TxResult{}, nil, errors.New("block already settled")
	}
	b.settled = true

	outputs, lost, err := Split(b.fees, values)
	if err != nil {
		return TxResult{}, nil, errors.Wrap(err, "coinbase claims more than subsidy and fees")
	}
	out := b.out + sumValues(values)

	// sats in = sats out, lost sats included
	if uint128.From64(b.in).Add64(b.reward.Subsidy) != uint128.From64(out).Add64(lost.Len()) {
		return TxResult{}, nil, errors.Wrapf(ErrConservation, "block %d: in %d + subsidy %d, out %d + lost %d", b.height, b.in, b.reward.Subsidy, out, lost.Len())
	}
	return TxResult{Outputs: outputs}, lost, nil
}

// Block computes the ranges of every output of a block. txs[0] must be the coinbase.
func (t *Tracker) Block(height int64, txs []TxFlow) (*BlockResult, error) {
	if len(txs) == 0 {
		return nil, errors.New("block has no coinbase")
	}
	block := t.NewBlock(height)
	result := &BlockResult{
		Height:  height,
		Subsidy: block.Subsidy(),
		Txs:     make([]TxResult, len(txs)),
	}
	for i := 1; i < len(txs); i++ {
		tx, err := block.Spend(txs[i])
		if err != nil {
			return nil, errors.Wrapf(err, "tx %d", i)
		}
		result.Txs[i] = tx
	}
	coinbase, lost, err := block.Coinbase(txs[0].Outputs)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	result.Txs[0] = coinbase
	result.Lost = lost
	return result, nil
}

func sumValues(values []uint64) uint64 {
	var n uint64
	for _, v := range values {
		n += v
	}
	return n
}
