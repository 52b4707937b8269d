package indexer

import (
	"context"

	"github.com/gaze-network/doginals-indexer/core/types"
)

// Input is a unit of data the indexer feeds to a processor, e.g. a block.
type Input interface {
	BlockHeader() types.BlockHeader
}

type Processor[T Input] interface {
	Name() string

	// Process processes the input data and indexes it. Inputs are continuous and in height order.
	Process(ctx context.Context, inputs []T) error

	// CurrentBlock returns the latest indexed block header. Height is -1 if nothing is indexed.
	CurrentBlock(ctx context.Context) (types.BlockHeader, error)

	// GetIndexedBlock returns the indexed block header by the specified block height.
	GetIndexedBlock(ctx context.Context, height int64) (types.BlockHeader, error)

	// RevertData revert synced data to the specified block height for re-indexing.
	RevertData(ctx context.Context, from int64) error

	// VerifyStates verifies the states of the indexed data and the indexer
	// to ensure the last shutdown was graceful and no missing data.
	VerifyStates(ctx context.Context) error

	Shutdown(ctx context.Context) error
}

type IndexerWorker interface {
	Run(ctx context.Context) error
	ShutdownWithContext(ctx context.Context) error
}
