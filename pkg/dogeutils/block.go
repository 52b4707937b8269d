package dogeutils

import (
	"bytes"
	"encoding/hex"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
)

// AuxPowVersionFlag is set in the header version of merge-mined blocks.
// Those blocks carry an AuxPoW section between the header and the transactions.
const AuxPowVersionFlag = int32(1 << 8)

const (
	// maxMerkleBranch bounds branch lengths read from the AuxPoW section.
	maxMerkleBranch = 64

	// smallest possible serialized transaction, used to bound the tx count.
	minTxSize = 10
)

// IsAuxPow reports whether a header with this version carries AuxPoW data.
func IsAuxPow(version int32) bool {
	return version&AuxPowVersionFlag != 0
}

// DecodeBlockHex decodes the hex output of `getblock <hash> false`.
func DecodeBlockHex(s string) (*wire.MsgBlock, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(errs.InvalidArgument, "block is not valid hex")
	}
	return DecodeBlock(raw)
}

// DecodeBlock decodes a serialized block. The AuxPoW section of merge-mined
// blocks is validated for shape and skipped, the returned block only has the
// header and the transactions. Transactions are decoded without witness data.
func DecodeBlock(raw []byte) (*wire.MsgBlock, error) {
	r := bytes.NewReader(raw)

	var block wire.MsgBlock
	if err := block.Header.Deserialize(r); err != nil {
		return nil, errors.Wrap(err, "failed to read block header")
	}
	if IsAuxPow(block.Header.Version) {
		if err := skipAuxPow(r); err != nil {
			return nil, errors.Wrap(err, "failed to read auxpow")
		}
	}

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read transaction count")
	}
	if count > uint64(r.Len()/minTxSize) {
		return nil, errors.Wrapf(errs.InvalidArgument, "transaction count %d exceeds block size", count)
	}

	block.Transactions = make([]*wire.MsgTx, 0, count)
	for i := uint64(0); i < count; i++ {
		tx := new(wire.MsgTx)
		if err := tx.DeserializeNoWitness(r); err != nil {
			return nil, errors.Wrapf(err, "failed to read transaction %d", i)
		}
		block.Transactions = append(block.Transactions, tx)
	}
	if r.Len() != 0 {
		return nil, errors.Wrapf(errs.InvalidArgument, "%d trailing bytes after block", r.Len())
	}
	return &block, nil
}

// DecodeTransactionHex decodes the hex output of `getrawtransaction <txid> 0`.
func DecodeTransactionHex(s string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(errs.InvalidArgument, "transaction is not valid hex")
	}
	tx := new(wire.MsgTx)
	if err := tx.DeserializeNoWitness(bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrap(err, "failed to read transaction")
	}
	return tx, nil
}

// skipAuxPow consumes:
//
//	parent coinbase tx | parent block hash | coinbase branch + index |
//	chain branch + index | parent block header
func skipAuxPow(r *bytes.Reader) error {
	var coinbase wire.MsgTx
	if err := coinbase.DeserializeNoWitness(r); err != nil {
		return errors.Wrap(err, "parent coinbase")
	}
	if err := discard(r, chainhash.HashSize); err != nil {
		return errors.Wrap(err, "parent block hash")
	}
	if err := skipMerkleBranch(r); err != nil {
		return errors.Wrap(err, "coinbase merkle branch")
	}
	if err := skipMerkleBranch(r); err != nil {
		return errors.Wrap(err, "chain merkle branch")
	}
	var parent wire.BlockHeader
	if err := parent.Deserialize(r); err != nil {
		return errors.Wrap(err, "parent block header")
	}
	return nil
}

func skipMerkleBranch(r *bytes.Reader) error {
	n, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return errors.WithStack(err)
	}
	if n > maxMerkleBranch {
		return errors.Wrapf(errs.InvalidArgument, "merkle branch too long: %d", n)
	}
	// hashes followed by the int32 side mask
	return discard(r, int64(n)*chainhash.HashSize+4)
}

func discard(r io.Reader, n int64) error {
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return errors.Wrap(err, "unexpected end of data")
	}
	return nil
}
