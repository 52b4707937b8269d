package types

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/samber/lo"
)

// auxPowVersionFlag marks a merge-mined header whose proof of work lives in a parent chain.
const auxPowVersionFlag = 1 << 8

// BlockHeader is the indexed subset of a Dogecoin header. The AuxPoW section of
// merge-mined blocks is not kept.
type BlockHeader struct {
	Hash       chainhash.Hash
	Height     int64
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

// IsAuxPow reports whether the block was merge-mined.
func (h BlockHeader) IsAuxPow() bool {
	return h.Version&auxPowVersionFlag != 0
}

// ChainID is the merge-mining chain id carried in the upper half of the version.
func (h BlockHeader) ChainID() int32 {
	return h.Version >> 16
}

type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
}

func (b *Block) BlockHeader() BlockHeader {
	return b.Header
}

// Coinbase returns the first transaction of the block, or nil for an empty block.
func (b *Block) Coinbase() *Transaction {
	if len(b.Transactions) == 0 {
		return nil
	}
	return b.Transactions[0]
}

// ParseMsgBlock converts a decoded block at height. Transaction indexes follow block order.
func ParseMsgBlock(src *wire.MsgBlock, height int64) *Block {
	h := src.Header
	hash := h.BlockHash()
	return &Block{
		Header: BlockHeader{
			Hash:       hash,
			Height:     height,
			Version:    h.Version,
			PrevBlock:  h.PrevBlock,
			MerkleRoot: h.MerkleRoot,
			Timestamp:  h.Timestamp,
			Bits:       h.Bits,
			Nonce:      h.Nonce,
		},
		Transactions: lo.Map(src.Transactions, func(tx *wire.MsgTx, i int) *Transaction {
			return ParseMsgTx(tx, height, hash, uint32(i))
		}),
	}
}
