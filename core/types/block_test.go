package types

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMsgBlock(t *testing.T) {
	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex), []byte{0x01}, nil))
	coinbase.AddTxOut(wire.NewTxOut(10_000_00000000, []byte{0x51}))

	header := wire.NewBlockHeader(0x00620104, &chainhash.Hash{0x02}, &chainhash.Hash{0x03}, 0x1b0404cb, 9)
	header.Timestamp = time.Unix(1_700_000_000, 0)
	msg := wire.NewMsgBlock(header)
	require.NoError(t, msg.AddTransaction(coinbase))

	block := ParseMsgBlock(msg, 5_000_000)

	assert.Equal(t, header.BlockHash(), block.Header.Hash)
	assert.EqualValues(t, 5_000_000, block.BlockHeader().Height)
	assert.True(t, block.Header.IsAuxPow())
	assert.EqualValues(t, 0x62, block.Header.ChainID())
	require.NotNil(t, block.Coinbase())
	assert.True(t, block.Coinbase().IsCoinbase())
	assert.Equal(t, block.Header.Hash, block.Coinbase().BlockHash)

	assert.Nil(t, (&Block{}).Coinbase())
	assert.False(t, BlockHeader{Version: 2}.IsAuxPow())
}
