package types

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
)

func TestTransaction(t *testing.T) {
	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex), []byte{0x03, 0x01, 0x02, 0x03}, nil))
	coinbase.AddTxOut(wire.NewTxOut(10_000_00000000, []byte{0x51}))

	spend := wire.NewMsgTx(1)
	spend.LockTime = 42
	prev := coinbase.TxHash()
	txIn := wire.NewTxIn(wire.NewOutPoint(&prev, 0), []byte{0x03, 'o', 'r', 'd'}, nil)
	txIn.Sequence = 7
	spend.AddTxIn(txIn)
	spend.AddTxOut(wire.NewTxOut(100_000, []byte{0x76, 0xa9}))
	spend.AddTxOut(wire.NewTxOut(0, []byte{0x6a, 0x01, 0x00}))

	blockHash := chainhash.Hash{0x01}

	t.Run("coinbase", func(t *testing.T) {
		tx := ParseMsgTx(coinbase, 10, blockHash, 0)
		assert.True(t, tx.IsCoinbase())
		assert.EqualValues(t, 10, tx.BlockHeight)
	})

	t.Run("spend", func(t *testing.T) {
		tx := ParseMsgTx(spend, 10, blockHash, 1)
		assert.False(t, tx.IsCoinbase())
		assert.Equal(t, wire.OutPoint{Hash: prev, Index: 0}, tx.TxIn[0].PreviousOutPoint())
		assert.False(t, tx.TxOut[0].IsOpReturn())
		assert.True(t, tx.TxOut[1].IsOpReturn())
	})

	t.Run("rebuild wire tx", func(t *testing.T) {
		tx := ParseMsgTx(spend, 10, blockHash, 1)
		msg := tx.MsgTx()
		assert.Equal(t, spend.TxHash(), msg.TxHash())
		assert.Equal(t, tx.TxHash, msg.TxHash())
	})
}
