package datasources

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode serves a linear chain of blocks the way a Dogecoin node answers RPC.
type fakeNode struct {
	mu     sync.Mutex
	blocks []*wire.MsgBlock
	hashes map[chainhash.Hash]int

	// failures is how many calls to getblock fail before the node answers
	failures int
	calls    int
}

func newFakeNode(t *testing.T, n int) *fakeNode {
	t.Helper()
	node := &fakeNode{hashes: make(map[chainhash.Hash]int)}
	var prev chainhash.Hash
	for i := 0; i < n; i++ {
		coinbase := wire.NewMsgTx(1)
		coinbase.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex), []byte{byte(i), 0x01}, nil))
		coinbase.AddTxOut(wire.NewTxOut(10_000, []byte{0x51}))
		block := &wire.MsgBlock{
			Header: wire.BlockHeader{
				Version:   1,
				PrevBlock: prev,
				Timestamp: time.Unix(1700000000+int64(i)*60, 0),
				Bits:      0x1e0ffff0,
				Nonce:     uint32(i),
			},
			Transactions: []*wire.MsgTx{coinbase},
		}
		block.Header.MerkleRoot = coinbase.TxHash()
		prev = block.BlockHash()
		node.hashes[prev] = i
		node.blocks = append(node.blocks, block)
	}
	return node
}

func (n *fakeNode) GetBlockCount() (int64, error) {
	return int64(len(n.blocks) - 1), nil
}

func (n *fakeNode) GetBlockHash(height int64) (*chainhash.Hash, error) {
	if height < 0 || height >= int64(len(n.blocks)) {
		return nil, errors.New("Block height out of range")
	}
	hash := n.blocks[height].BlockHash()
	return &hash, nil
}

func (n *fakeNode) GetBlockHeaderVerbose(hash *chainhash.Hash) (*btcjson.GetBlockHeaderVerboseResult, error) {
	height, ok := n.hashes[*hash]
	if !ok {
		return nil, errors.New("Block not found")
	}
	header := n.blocks[height].Header
	result := &btcjson.GetBlockHeaderVerboseResult{
		Hash:       hash.String(),
		Height:     int32(height),
		Version:    header.Version,
		MerkleRoot: header.MerkleRoot.String(),
		Time:       header.Timestamp.Unix(),
		Nonce:      uint64(header.Nonce),
		Bits:       strconv.FormatUint(uint64(header.Bits), 16),
	}
	if height > 0 {
		result.PreviousHash = header.PrevBlock.String()
	}
	return result, nil
}

func (n *fakeNode) RawRequest(method string, params []json.RawMessage) (json.RawMessage, error) {
	var hashStr string
	if err := json.Unmarshal(params[0], &hashStr); err != nil {
		return nil, err
	}
	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		return nil, err
	}
	switch method {
	case "getblock":
		n.mu.Lock()
		n.calls++
		fail := n.calls <= n.failures
		n.mu.Unlock()
		if fail {
			return nil, errors.New("connection refused")
		}
		height, ok := n.hashes[*hash]
		if !ok {
			return nil, errors.New("Block not found")
		}
		var buf bytes.Buffer
		if err := n.blocks[height].Serialize(&buf); err != nil {
			return nil, err
		}
		return json.Marshal(hex.EncodeToString(buf.Bytes()))
	case "getrawtransaction":
		for _, block := range n.blocks {
			for _, tx := range block.Transactions {
				if tx.TxHash() == *hash {
					var buf bytes.Buffer
					if err := tx.Serialize(&buf); err != nil {
						return nil, err
					}
					return json.Marshal(hex.EncodeToString(buf.Bytes()))
				}
			}
		}
		return nil, errors.New("No such mempool or blockchain transaction")
	}
	return nil, errors.Newf("unexpected method %s", method)
}

func newTestDatasource(node *fakeNode, parallelism int) *DogecoinNodeDatasource {
	d := NewDogecoinNode(node, parallelism)
	d.retryMin = time.Millisecond
	d.retryMax = 5 * time.Millisecond
	return d
}

func TestDogecoinNodeFetch(t *testing.T) {
	ctx := context.Background()
	node := newFakeNode(t, 75)

	testCases := []struct {
		name       string
		from, to   int64
		wantFirst  int64
		wantLength int
	}{
		{name: "whole chain", from: -1, to: -1, wantFirst: 0, wantLength: 75},
		{name: "bounded range", from: 10, to: 30, wantFirst: 10, wantLength: 21},
		{name: "end beyond tip", from: 70, to: 500, wantFirst: 70, wantLength: 5},
		{name: "start beyond tip", from: 75, to: -1, wantLength: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := newTestDatasource(node, 3)
			blocks, err := d.Fetch(ctx, tc.from, tc.to)
			require.NoError(t, err)
			require.Len(t, blocks, tc.wantLength)
			for i, block := range blocks {
				assert.Equal(t, tc.wantFirst+int64(i), block.Header.Height)
				if i > 0 {
					assert.Equal(t, blocks[i-1].Header.Hash, block.Header.PrevBlock)
				}
			}
		})
	}
}

func TestDogecoinNodeRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("transient failure", func(t *testing.T) {
		node := newFakeNode(t, 3)
		node.failures = maxRetries - 1
		d := newTestDatasource(node, 1)

		block, err := d.GetBlock(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), block.Header.Height)
		assert.Equal(t, node.blocks[2].BlockHash(), block.Header.Hash)
	})

	t.Run("persistent failure reaches the subscriber", func(t *testing.T) {
		node := newFakeNode(t, 3)
		node.failures = 1 << 30
		d := newTestDatasource(node, 1)

		_, err := d.Fetch(ctx, 0, -1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestDogecoinNodeGetBlockHeader(t *testing.T) {
	ctx := context.Background()
	node := newFakeNode(t, 5)
	d := newTestDatasource(node, 1)

	header, err := d.GetBlockHeader(ctx, 3)
	require.NoError(t, err)
	expected := node.blocks[3].Header
	assert.Equal(t, int64(3), header.Height)
	assert.Equal(t, expected.BlockHash(), header.Hash)
	assert.Equal(t, expected.PrevBlock, header.PrevBlock)
	assert.Equal(t, expected.MerkleRoot, header.MerkleRoot)
	assert.Equal(t, expected.Bits, header.Bits)
	assert.Equal(t, expected.Timestamp.Unix(), header.Timestamp.Unix())

	_, err = d.GetBlockHeader(ctx, 99)
	assert.Error(t, err)
}

func TestDogecoinNodeGetRawTransaction(t *testing.T) {
	ctx := context.Background()
	node := newFakeNode(t, 2)
	d := newTestDatasource(node, 1)

	expected := node.blocks[1].Transactions[0]
	tx, err := d.GetRawTransaction(ctx, expected.TxHash())
	require.NoError(t, err)
	assert.Equal(t, expected.TxHash(), tx.TxHash())
}
