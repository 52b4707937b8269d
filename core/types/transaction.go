package types

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/samber/lo"
)

type Transaction struct {
	BlockHeight int64
	BlockHash   chainhash.Hash
	Index       uint32
	TxHash      chainhash.Hash
	Version     int32
	LockTime    uint32
	TxIn        []*TxIn
	TxOut       []*TxOut
}

// IsCoinbase reports whether the transaction is the coinbase of its block.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.TxIn) == 1 &&
		tx.TxIn[0].PreviousOutIndex == wire.MaxPrevOutIndex &&
		tx.TxIn[0].PreviousOutTxHash == (chainhash.Hash{})
}

// MsgTx rebuilds the wire form of the transaction.
func (tx *Transaction) MsgTx() *wire.MsgTx {
	msg := wire.NewMsgTx(tx.Version)
	msg.LockTime = tx.LockTime
	for _, in := range tx.TxIn {
		txIn := wire.NewTxIn(lo.ToPtr(in.PreviousOutPoint()), in.SignatureScript, nil)
		txIn.Sequence = in.Sequence
		msg.AddTxIn(txIn)
	}
	for _, out := range tx.TxOut {
		msg.AddTxOut(wire.NewTxOut(out.Value, out.PkScript))
	}
	return msg
}

type TxIn struct {
	SignatureScript   []byte
	Sequence          uint32
	PreviousOutIndex  uint32
	PreviousOutTxHash chainhash.Hash
}

func (in *TxIn) PreviousOutPoint() wire.OutPoint {
	return wire.OutPoint{
		Hash:  in.PreviousOutTxHash,
		Index: in.PreviousOutIndex,
	}
}

type TxOut struct {
	PkScript []byte
	Value    int64
}

// IsOpReturn reports whether the output can never be spent.
func (o *TxOut) IsOpReturn() bool {
	return len(o.PkScript) > 0 && o.PkScript[0] == 0x6a
}

// ParseMsgTx parses btcd/wire.MsgTx to Transaction.
func ParseMsgTx(src *wire.MsgTx, blockHeight int64, blockHash chainhash.Hash, index uint32) *Transaction {
	return &Transaction{
		BlockHeight: blockHeight,
		BlockHash:   blockHash,
		Index:       index,
		TxHash:      src.TxHash(),
		Version:     src.Version,
		LockTime:    src.LockTime,
		TxIn: lo.Map(src.TxIn, func(item *wire.TxIn, _ int) *TxIn {
			return ParseTxIn(item)
		}),
		TxOut: lo.Map(src.TxOut, func(item *wire.TxOut, _ int) *TxOut {
			return ParseTxOut(item)
		}),
	}
}

// ParseTxIn parses btcd/wire.TxIn to TxIn.
func ParseTxIn(src *wire.TxIn) *TxIn {
	return &TxIn{
		SignatureScript:   src.SignatureScript,
		Sequence:          src.Sequence,
		PreviousOutIndex:  src.PreviousOutPoint.Index,
		PreviousOutTxHash: src.PreviousOutPoint.Hash,
	}
}

// ParseTxOut parses btcd/wire.TxOut to TxOut.
func ParseTxOut(src *wire.TxOut) *TxOut {
	return &TxOut{
		PkScript: src.PkScript,
		Value:    src.Value,
	}
}
