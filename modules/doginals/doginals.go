package doginals

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/core/datasources"
	"github.com/gaze-network/doginals-indexer/core/indexer"
	"github.com/gaze-network/doginals-indexer/internal/config"
	"github.com/gaze-network/doginals-indexer/internal/kvstore"
	"github.com/gaze-network/doginals-indexer/internal/kvstore/boltkv"
	"github.com/gaze-network/doginals-indexer/internal/kvstore/pgkv"
	"github.com/gaze-network/doginals-indexer/internal/postgres"
	"github.com/gaze-network/doginals-indexer/modules/doginals/api/httphandler"
	doginalsconfig "github.com/gaze-network/doginals-indexer/modules/doginals/config"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/epoch"
	kvrepo "github.com/gaze-network/doginals-indexer/modules/doginals/internal/repository/kv"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/sat"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/usecase"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
)

// regtestSubsidy is the flat block subsidy used on regtest.
const regtestSubsidy = 500_000 * epoch.COIN

func New(injector do.Injector) (_ indexer.IndexerWorker, err error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	moduleConf := conf.Modules.Doginals

	store, err := openStore(ctx, moduleConf.Database, moduleConf)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer func() {
		if err != nil {
			_ = store.Close()
		}
	}()
	cleanupFuncs := []func(context.Context) error{
		func(context.Context) error { return errors.WithStack(store.Close()) },
	}
	doginalsDg := kvrepo.NewRepository(store)

	epochs, err := newEpochTable(conf.Network, moduleConf.SubsidiesPath)
	if err != nil {
		return nil, errors.Wrap(err, "can't build epoch table")
	}

	var dogecoinNode *datasources.DogecoinNodeDatasource
	switch strings.ToLower(moduleConf.Datasource) {
	case "dogecoin-node":
		client := do.MustInvoke[*rpcclient.Client](injector)
		dogecoinNode = datasources.NewDogecoinNode(client, moduleConf.FetchParallelism)
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q datasource is not supported", moduleConf.Datasource)
	}

	processor, err := NewProcessor(doginalsDg, sat.NewTracker(epochs), conf.Network, moduleConf, cleanupFuncs)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := processor.VerifyStates(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	// Mount API
	apiHandlers := lo.Uniq(moduleConf.APIHandlers)
	for _, handler := range apiHandlers {
		switch handler {
		case "http":
			httpServer := do.MustInvoke[*fiber.App](injector)
			doginalsUsecase := usecase.New(doginalsDg, dogecoinNode, epochs, moduleConf.MaxDelegateHops)
			doginalsHTTPHandler := httphandler.New(conf.Network, doginalsUsecase)
			if err := doginalsHTTPHandler.Mount(httpServer); err != nil {
				return nil, errors.Wrap(err, "can't mount Doginals API")
			}
			logger.InfoContext(ctx, "Mounted HTTP handler")
		default:
			return nil, errors.Wrapf(errs.Unsupported, "%q API handler is not supported", handler)
		}
	}

	return indexer.New(processor, dogecoinNode, indexer.WithMaxReorgDepth(moduleConf.MaxReorgDepth)), nil
}

func openStore(ctx context.Context, database string, conf doginalsconfig.Config) (kvstore.Store, error) {
	switch strings.ToLower(database) {
	case "bolt", "bbolt":
		if err := os.MkdirAll(conf.DataDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "can't create data directory")
		}
		store, err := boltkv.Open(filepath.Join(conf.DataDir, "doginals.db"))
		if err != nil {
			return nil, errors.Wrap(err, "can't open bolt database")
		}
		return store, nil
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, conf.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for indexer")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		store, err := pgkv.New(ctx, pg, pg.Close)
		if err != nil {
			pg.Close()
			return nil, errors.Wrap(err, "can't open postgres store")
		}
		return store, nil
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for indexer is not supported", database)
	}
}

// newEpochTable builds the issuance schedule of network. The random rewards before the first era
// are read from the subsidies file of the network.
func newEpochTable(network common.Network, subsidiesPath string) (*epoch.Table, error) {
	var eras []epoch.Era
	switch network {
	case common.NetworkRegtest:
		return epoch.New(nil, []epoch.Era{{StartHeight: 0, Subsidy: regtestSubsidy}}, epoch.DefaultMaxHeight)
	case common.NetworkMainnet:
		eras = epoch.MainnetEras
	case common.NetworkTestnet:
		eras = epoch.TestnetEras
	default:
		return nil, errors.Wrapf(errs.Unsupported, "network %q", network)
	}
	bootstrap, err := epoch.LoadBootstrap(subsidiesPath, eras[0].StartHeight)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return epoch.New(bootstrap, eras, epoch.DefaultMaxHeight)
}
