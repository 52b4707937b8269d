package indexer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/core/datasources"
	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
)

const (
	// DefaultMaxReorgDepth is how many blocks the indexer walks back to find a fork point.
	DefaultMaxReorgDepth = 1000

	// DefaultPollingInterval is the default polling interval for the indexer polling worker
	DefaultPollingInterval = 15 * time.Second

	shutdownTimeout = 180 * time.Second
)

type State int32

const (
	StateUninitialized State = iota
	StateCatchingUp
	StateSynced
	StateRollingBack
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCatchingUp:
		return "catching_up"
	case StateSynced:
		return "synced"
	case StateRollingBack:
		return "rolling_back"
	}
	return "unknown"
}

type Option func(*options)

type options struct {
	maxReorgDepth   int64
	pollingInterval time.Duration
}

// WithMaxReorgDepth bounds the fork point search. Deeper reorgs stop the indexer with errs.ReorgTooDeep.
func WithMaxReorgDepth(depth int64) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxReorgDepth = depth
		}
	}
}

func WithPollingInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.pollingInterval = interval
		}
	}
}

// Make sure to implement the IndexerWorker interface
var _ IndexerWorker = (*Indexer[*types.Block])(nil)

// Indexer generic indexer for fetching and processing data
type Indexer[T Input] struct {
	Processor    Processor[T]
	Datasource   datasources.Datasource[T]
	currentBlock types.BlockHeader
	state        atomic.Int32
	options      options
	running      atomic.Bool

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// New create new generic indexer
func New[T Input](processor Processor[T], datasource datasources.Datasource[T], opts ...Option) *Indexer[T] {
	o := options{
		maxReorgDepth:   DefaultMaxReorgDepth,
		pollingInterval: DefaultPollingInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Indexer[T]{
		Processor:  processor,
		Datasource: datasource,
		options:    o,

		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// State returns the current state of the indexer. It is safe to call from any goroutine.
func (i *Indexer[T]) State() State {
	return State(i.state.Load())
}

func (i *Indexer[T]) setState(ctx context.Context, state State) {
	prev := State(i.state.Swap(int32(state)))
	if prev == state {
		return
	}
	logger.InfoContext(ctx, "Indexer state changed",
		slogx.String("event", "state_changed"),
		slogx.Stringer("from", prev),
		slogx.Stringer("to", state),
		slogx.Int64("current_block", i.currentBlock.Height),
	)
}

func (i *Indexer[T]) Shutdown() error {
	return i.ShutdownWithContext(context.Background())
}

func (i *Indexer[T]) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return i.ShutdownWithContext(ctx)
}

// ShutdownWithContext stops the indexer after the batch in progress is committed.
func (i *Indexer[T]) ShutdownWithContext(ctx context.Context) (err error) {
	i.quitOnce.Do(func() {
		close(i.quit)
		if !i.running.Load() {
			// never started, nothing will release the processor
			err = errors.WithStack(i.Processor.Shutdown(ctx))
			return
		}
		select {
		case <-i.done:
		case <-time.After(shutdownTimeout):
			err = errors.Wrap(errs.Timeout, "indexer shutdown timeout")
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "indexer shutdown context canceled")
		}
	})
	return
}

func (i *Indexer[T]) Run(ctx context.Context) (err error) {
	i.running.Store(true)
	defer close(i.done)
	if i.isQuitting() {
		return nil
	}

	ctx = logger.WithContext(ctx,
		slog.String("package", "indexer"),
		slog.String("processor", i.Processor.Name()),
		slog.String("datasource", i.Datasource.Name()),
	)

	// set to -1 to start from genesis block
	i.currentBlock, err = i.Processor.CurrentBlock(ctx)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "can't init state, failed to get indexer current block")
		}
		i.currentBlock = types.BlockHeader{Height: -1}
	}
	i.setState(ctx, StateCatchingUp)

	ticker := time.NewTicker(i.options.pollingInterval)
	defer ticker.Stop()
	for {
		// rounds run back to back until the indexer catches up with the tip
		caughtUp, err := i.process(ctx)
		if err != nil && ctx.Err() != nil {
			return i.shutdownProcessor(ctx)
		}
		if err != nil {
			logger.ErrorContext(ctx, "Indexer failed while processing", slogx.Error(err))
			return errors.Wrap(err, "process failed")
		}
		if !caughtUp {
			if i.isQuitting() {
				return i.shutdownProcessor(ctx)
			}
			continue
		}
		i.setState(ctx, StateSynced)

		logger.DebugContext(ctx, "Waiting for next polling interval")
		select {
		case <-i.quit:
			return i.shutdownProcessor(ctx)
		case <-ctx.Done():
			return i.shutdownProcessor(ctx)
		case <-ticker.C:
		}
	}
}

func (i *Indexer[T]) isQuitting() bool {
	select {
	case <-i.quit:
		return true
	default:
		return false
	}
}

func (i *Indexer[T]) shutdownProcessor(ctx context.Context) error {
	logger.InfoContext(ctx, "Got quit signal, stopping indexer")
	// the processor may still need to flush with the caller's context gone
	if err := i.Processor.Shutdown(context.WithoutCancel(ctx)); err != nil {
		logger.ErrorContext(ctx, "Failed to shutdown processor", slogx.Error(err))
		return errors.Wrap(err, "processor shutdown failed")
	}
	return nil
}

// process runs one fetch round. It reports whether the round ended at the chain tip.
func (i *Indexer[T]) process(ctx context.Context) (caughtUp bool, err error) {
	// height range to fetch data
	from, to := i.currentBlock.Height+1, int64(-1)

	logger.DebugContext(ctx, "Start fetching input data", slog.Int64("from", from))
	ch := make(chan []T)
	subscription, err := i.Datasource.FetchAsync(ctx, from, to, ch)
	if err != nil {
		return false, errors.Wrap(err, "failed to fetch input data")
	}
	defer subscription.Unsubscribe()

	for {
		select {
		case <-i.quit:
			return false, nil
		case inputs := <-ch:
			// empty inputs
			if len(inputs) == 0 {
				continue
			}

			firstInputHeader := inputs[0].BlockHeader()
			if firstInputHeader.Height != i.currentBlock.Height+1 {
				return false, errors.Wrapf(errs.InternalError, "input is not continuous, current block: %d, first input: %d", i.currentBlock.Height, firstInputHeader.Height)
			}

			// validate reorg from first input
			if i.currentBlock.Height >= 0 && !firstInputHeader.PrevBlock.IsEqual(&i.currentBlock.Hash) {
				if err := i.rollback(ctx, firstInputHeader); err != nil {
					return false, errors.WithStack(err)
				}
				// end current round to fetch again from the fork point
				return false, nil
			}

			// validate is input is continuous and no reorg
			for i := 1; i < len(inputs); i++ {
				header := inputs[i].BlockHeader()
				prevHeader := inputs[i-1].BlockHeader()
				if header.Height != prevHeader.Height+1 {
					return false, errors.Wrapf(errs.InternalError, "input is not continuous, input[%d] height: %d, input[%d] height: %d", i-1, prevHeader.Height, i, header.Height)
				}

				if !header.PrevBlock.IsEqual(&prevHeader.Hash) {
					logger.WarnContext(ctx, "Chain Reorganization occurred in the middle of batch fetching inputs, need to try to fetch again")

					// end current round
					return false, nil
				}
			}

			startAt := time.Now()
			ctx := logger.WithContext(ctx,
				slogx.Int64("from", firstInputHeader.Height),
				slogx.Int64("to", inputs[len(inputs)-1].BlockHeader().Height),
				slog.Int("total_inputs", len(inputs)),
			)

			// Start processing input
			logger.DebugContext(ctx, "Processing inputs")
			if err := i.Processor.Process(ctx, inputs); err != nil {
				return false, errors.WithStack(err)
			}

			// Update current state
			i.currentBlock = inputs[len(inputs)-1].BlockHeader()

			logger.InfoContext(ctx, "Processed inputs successfully",
				slogx.String("event", "processed_inputs"),
				slogx.Int64("current_block", i.currentBlock.Height),
				slogx.Duration("duration", time.Since(startAt)),
			)
		case <-subscription.Done():
			if err := subscription.PendingErr(); err != nil {
				return false, errors.Wrap(err, "got error while fetch async")
			}
			// end current round
			if err := ctx.Err(); err != nil {
				return false, errors.Wrap(err, "context done")
			}
			return true, nil
		case <-ctx.Done():
			return false, errors.WithStack(ctx.Err())
		case err := <-subscription.Err():
			if err != nil {
				return false, errors.Wrap(err, "got error while fetch async")
			}
		}
	}
}

// rollback walks back from the current block to the last block the datasource agrees with and
// reverts everything indexed above it.
func (i *Indexer[T]) rollback(ctx context.Context, remoteBlockHeader types.BlockHeader) error {
	i.setState(ctx, StateRollingBack)
	logger.WarnContext(ctx, "Detected chain reorganization. Searching for fork point...",
		slogx.String("event", "reorg_detected"),
		slogx.Stringer("current_hash", i.currentBlock.Hash),
		slogx.Stringer("expected_hash", remoteBlockHeader.PrevBlock),
	)

	var (
		start        = time.Now()
		targetHeight = i.currentBlock.Height - 1
		forkPoint    = types.BlockHeader{Height: -1}
		found        bool
	)
	for depth := int64(1); targetHeight >= 0; depth++ {
		if depth > i.options.maxReorgDepth {
			return errors.Wrapf(errs.ReorgTooDeep, "no common block within %d blocks of %d", i.options.maxReorgDepth, i.currentBlock.Height)
		}

		indexedHeader, err := i.Processor.GetIndexedBlock(ctx, targetHeight)
		if err != nil {
			return errors.Wrapf(err, "failed to get indexed block, height: %d", targetHeight)
		}

		remoteHeader, err := i.Datasource.GetBlockHeader(ctx, targetHeight)
		if err != nil {
			return errors.Wrapf(err, "failed to get remote block header, height: %d", targetHeight)
		}

		// Found no reorg block
		if indexedHeader.Hash.IsEqual(&remoteHeader.Hash) {
			forkPoint = remoteHeader
			found = true
			break
		}

		// Walk back to find fork point
		targetHeight--
	}
	if !found && i.currentBlock.Height+1 > i.options.maxReorgDepth {
		return errors.Wrapf(errs.ReorgTooDeep, "no common block within %d blocks of %d", i.options.maxReorgDepth, i.currentBlock.Height)
	}

	logger.InfoContext(ctx, "Found reorg fork point, starting to revert data...",
		slogx.String("event", "reorg_forkpoint"),
		slogx.Int64("since", forkPoint.Height+1),
		slogx.Int64("total_blocks", i.currentBlock.Height-forkPoint.Height),
		slogx.Duration("search_duration", time.Since(start)),
	)

	// Revert all data since the reorg block
	start = time.Now()
	if err := i.Processor.RevertData(ctx, forkPoint.Height+1); err != nil {
		return errors.Wrap(err, "failed to revert data")
	}

	// Set current block to before reorg block and
	// end current round to fetch again
	i.currentBlock = forkPoint
	logger.InfoContext(ctx, "Fixing chain reorganization completed",
		slogx.String("event", "reorg_completed"),
		slogx.Int64("current_block", i.currentBlock.Height),
		slogx.Duration("duration", time.Since(start)),
	)
	i.setState(ctx, StateCatchingUp)
	return nil
}
