package datasources

import (
	"context"

	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/gaze-network/doginals-indexer/internal/subscription"
)

// Datasource is an interface for indexer data sources.
type Datasource[T any] interface {
	Name() string

	// Fetch returns every input in the height range [from, to].
	//   - from: block height to start fetching, if -1, it will start from genesis block
	//   - to: block height to stop fetching, if -1, it will fetch until the latest block
	Fetch(ctx context.Context, from, to int64) ([]T, error)

	// FetchAsync sends batches of inputs to ch in height order. The subscription is done once
	// the range is exhausted or fetching failed.
	FetchAsync(ctx context.Context, from, to int64, ch chan<- []T) (*subscription.ClientSubscription[[]T], error)

	GetBlockHeader(ctx context.Context, height int64) (types.BlockHeader, error)
}
