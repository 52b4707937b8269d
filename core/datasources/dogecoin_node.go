package datasources

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/gaze-network/doginals-indexer/internal/subscription"
	"github.com/gaze-network/doginals-indexer/pkg/dogeutils"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/jpillora/backoff"
	cstream "github.com/planxnx/concurrent-stream"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	blockStreamChunkSize = 20
	defaultParallelism   = 8
	maxRetries           = 5
)

// DogecoinRPC is the subset of the node RPC the datasource uses. *rpcclient.Client implements it.
type DogecoinRPC interface {
	GetBlockCount() (int64, error)
	GetBlockHash(height int64) (*chainhash.Hash, error)
	GetBlockHeaderVerbose(hash *chainhash.Hash) (*btcjson.GetBlockHeaderVerboseResult, error)
	RawRequest(method string, params []json.RawMessage) (json.RawMessage, error)
}

// Make sure to implement the Datasource interface
var _ Datasource[*types.Block] = (*DogecoinNodeDatasource)(nil)

// DogecoinNodeDatasource fetch data from a Dogecoin node for the doginals indexer.
type DogecoinNodeDatasource struct {
	client      DogecoinRPC
	parallelism int

	// retry delays, grown exponentially between attempts
	retryMin, retryMax time.Duration
}

// NewDogecoinNode create new DogecoinNodeDatasource with a Dogecoin node RPC client.
// Parallelism bounds how many chunks of blocks are fetched at once.
func NewDogecoinNode(client DogecoinRPC, parallelism int) *DogecoinNodeDatasource {
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &DogecoinNodeDatasource{
		client:      client,
		parallelism: parallelism,
		retryMin:    500 * time.Millisecond,
		retryMax:    30 * time.Second,
	}
}

func (d DogecoinNodeDatasource) Name() string {
	return "dogecoin_node"
}

// Fetch polling blocks from Dogecoin node
//
//   - from: block height to start fetching, if -1, it will start from genesis block
//   - to: block height to stop fetching, if -1, it will fetch until the latest block
func (d *DogecoinNodeDatasource) Fetch(ctx context.Context, from, to int64) ([]*types.Block, error) {
	ch := make(chan []*types.Block)
	subscription, err := d.FetchAsync(ctx, from, to, ch)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer subscription.Unsubscribe()

	blocks := make([]*types.Block, 0)
	for {
		select {
		case b := <-ch:
			blocks = append(blocks, b...)
		case <-subscription.Done():
			if err := subscription.PendingErr(); err != nil {
				return nil, errors.Wrap(err, "got error while fetch async")
			}
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "context done")
			}
			return blocks, nil
		case err := <-subscription.Err():
			if err != nil {
				return nil, errors.Wrap(err, "got error while fetch async")
			}
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "context done")
		}
	}
}

type blockChunk struct {
	blocks []*types.Block
	err    error
}

// FetchAsync polling blocks from Dogecoin node asynchronously (non-blocking).
// Chunks of blocks are fetched concurrently and delivered in height order.
// Fetching stops at the first chunk that fails after retries, the error is sent to the subscription.
//
//   - from: block height to start fetching, if -1, it will start from genesis block
//   - to: block height to stop fetching, if -1, it will fetch until the latest block
func (d *DogecoinNodeDatasource) FetchAsync(ctx context.Context, from, to int64, ch chan<- []*types.Block) (*subscription.ClientSubscription[[]*types.Block], error) {
	from, to, skip, err := d.prepareRange(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare fetch range")
	}

	subscription := subscription.NewSubscription(ch)
	if skip {
		subscription.Unsubscribe()
		return subscription.Client(), nil
	}

	ctx, cancel := context.WithCancel(ctx)

	// Create parallel stream
	out := make(chan blockChunk)
	stream := cstream.NewStream(ctx, d.parallelism, out)

	// create slice of block height to fetch
	blockHeights := make([]int64, 0, to-from+1)
	for i := from; i <= to; i++ {
		blockHeights = append(blockHeights, i)
	}

	// Wait for stream to finish and close out channel
	go func() {
		defer close(out)
		_ = stream.Wait()
	}()

	// Fan-out blocks to subscription channel
	go func() {
		defer func() {
			// release workers still waiting to hand over a chunk
			go func() {
				for range out {
				}
			}()
		}()
		defer cancel()
		defer subscription.Unsubscribe()
		for {
			select {
			case chunk, ok := <-out:
				// stream closed
				if !ok {
					return
				}
				if chunk.err != nil {
					if err := subscription.SendError(ctx, chunk.err); err != nil {
						logger.ErrorContext(ctx, "Failed to send error", slogx.Error(err))
					}
					return
				}
				if len(chunk.blocks) == 0 {
					continue
				}
				if err := subscription.Send(ctx, chunk.blocks); err != nil {
					logger.DebugContext(ctx, "Stopped dispatching blocks",
						slogx.Error(err),
						slogx.Int64("start", chunk.blocks[0].Header.Height),
						slogx.Int64("end", chunk.blocks[len(chunk.blocks)-1].Header.Height),
					)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Parallel fetch blocks from Dogecoin node until complete all block heights
	// or subscription is done.
	go func() {
		defer stream.Close()
		done := subscription.Done()
		for _, chunk := range lo.Chunk(blockHeights, blockStreamChunkSize) {
			chunk := chunk
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			default:
				stream.Go(func() blockChunk {
					blocks, err := d.getBlocks(ctx, chunk)
					if err != nil {
						logger.ErrorContext(ctx, "Failed to get blocks",
							slogx.Error(err),
							slogx.Int64("from_height", chunk[0]),
							slogx.Int64("to_height", chunk[len(chunk)-1]),
						)
						return blockChunk{err: errors.Wrapf(err, "failed to get blocks: from_height: %d, to_height: %d", chunk[0], chunk[len(chunk)-1])}
					}
					return blockChunk{blocks: blocks}
				})
			}
		}
	}()

	return subscription.Client(), nil
}

// getBlocks fetches the blocks of a chunk concurrently, keeping the order of heights.
func (d *DogecoinNodeDatasource) getBlocks(ctx context.Context, heights []int64) ([]*types.Block, error) {
	blocks := make([]*types.Block, len(heights))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, height := range heights {
		i, height := i, height
		eg.Go(func() error {
			block, err := d.GetBlock(ectx, height)
			if err != nil {
				return errors.WithStack(err)
			}
			blocks[i] = block
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.WithStack(err)
	}
	return blocks, nil
}

// GetBlock returns the block at height. Merge-mined blocks are decoded with their AuxPoW section skipped.
func (d *DogecoinNodeDatasource) GetBlock(ctx context.Context, height int64) (*types.Block, error) {
	hash, err := d.getBlockHash(ctx, height)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	params := []json.RawMessage{
		json.RawMessage(strconv.Quote(hash.String())),
		json.RawMessage("false"),
	}
	raw, err := retry(ctx, d, "getblock", func() (string, error) {
		return rawString(d.client.RawRequest("getblock", params))
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get block %s", hash)
	}
	msgBlock, err := dogeutils.DecodeBlockHex(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode block %s", hash)
	}
	if got := msgBlock.BlockHash(); !got.IsEqual(hash) {
		return nil, errors.Wrapf(errs.InternalError, "block hash mismatch at height %d: expected %s, got %s", height, hash, got)
	}
	return types.ParseMsgBlock(msgBlock, height), nil
}

// GetRawTransaction returns a transaction by id. The node needs -txindex for transactions
// that are not in its mempool.
func (d *DogecoinNodeDatasource) GetRawTransaction(ctx context.Context, txHash chainhash.Hash) (*wire.MsgTx, error) {
	params := []json.RawMessage{
		json.RawMessage(strconv.Quote(txHash.String())),
		json.RawMessage("false"),
	}
	raw, err := retry(ctx, d, "getrawtransaction", func() (string, error) {
		return rawString(d.client.RawRequest("getrawtransaction", params))
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get transaction %s", txHash)
	}
	tx, err := dogeutils.DecodeTransactionHex(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode transaction %s", txHash)
	}
	return tx, nil
}

func (d *DogecoinNodeDatasource) GetBlockHeader(ctx context.Context, height int64) (types.BlockHeader, error) {
	hash, err := d.getBlockHash(ctx, height)
	if err != nil {
		return types.BlockHeader{}, errors.WithStack(err)
	}
	result, err := retry(ctx, d, "getblockheader", func() (*btcjson.GetBlockHeaderVerboseResult, error) {
		return d.client.GetBlockHeaderVerbose(hash)
	})
	if err != nil {
		return types.BlockHeader{}, errors.Wrapf(err, "failed to get block header %s", hash)
	}
	return parseHeaderResult(result)
}

func (d *DogecoinNodeDatasource) getBlockHash(ctx context.Context, height int64) (*chainhash.Hash, error) {
	hash, err := retry(ctx, d, "getblockhash", func() (*chainhash.Hash, error) {
		return d.client.GetBlockHash(height)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get block hash at height %d", height)
	}
	return hash, nil
}

func (d *DogecoinNodeDatasource) prepareRange(ctx context.Context, fromHeight, toHeight int64) (start, end int64, skip bool, err error) {
	start = fromHeight
	end = toHeight

	// get current dogecoin block height
	latestBlockHeight, err := retry(ctx, d, "getblockcount", d.client.GetBlockCount)
	if err != nil {
		return -1, -1, false, errors.Wrap(err, "failed to get block count")
	}

	// set start to genesis block height
	if start < 0 {
		start = 0
	}

	// set end to current dogecoin block height if
	// - end is -1
	// - end is greater that current dogecoin block height
	if end < 0 || end > latestBlockHeight {
		end = latestBlockHeight
	}

	// if start is greater than end, skip this round
	if start > end {
		return -1, -1, true, nil
	}

	return start, end, false, nil
}

// retry calls fn until it succeeds, maxRetries attempts fail, or ctx is done.
func retry[T any](ctx context.Context, d *DogecoinNodeDatasource, method string, fn func() (T, error)) (T, error) {
	b := &backoff.Backoff{
		Min:    d.retryMin,
		Max:    d.retryMax,
		Factor: 2,
		Jitter: true,
	}
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		delay := b.Duration()
		logger.WarnContext(ctx, "RPC request failed, retrying",
			slogx.String("method", method),
			slogx.Int("attempt", attempt+1),
			slogx.Duration("delay", delay),
			slogx.Error(err),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, errors.WithStack(ctx.Err())
		}
	}
	return zero, errors.Wrapf(lastErr, "%s failed after %d attempts", method, maxRetries)
}

func rawString(raw json.RawMessage, err error) (string, error) {
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.Wrap(err, "result is not a string")
	}
	return s, nil
}

func parseHeaderResult(result *btcjson.GetBlockHeaderVerboseResult) (types.BlockHeader, error) {
	hash, err := chainhash.NewHashFromStr(result.Hash)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "invalid block hash")
	}
	var prevBlock chainhash.Hash
	if result.PreviousHash != "" {
		prev, err := chainhash.NewHashFromStr(result.PreviousHash)
		if err != nil {
			return types.BlockHeader{}, errors.Wrap(err, "invalid previous block hash")
		}
		prevBlock = *prev
	}
	merkleRoot, err := chainhash.NewHashFromStr(result.MerkleRoot)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "invalid merkle root")
	}
	bits, err := strconv.ParseUint(result.Bits, 16, 32)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "invalid bits")
	}
	return types.BlockHeader{
		Hash:       *hash,
		Height:     int64(result.Height),
		Version:    result.Version,
		PrevBlock:  prevBlock,
		MerkleRoot: *merkleRoot,
		Timestamp:  time.Unix(result.Time, 0).UTC(),
		Bits:       uint32(bits),
		Nonce:      uint32(result.Nonce),
	}, nil
}
