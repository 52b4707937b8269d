package doginals

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/core/indexer"
	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/gaze-network/doginals-indexer/modules/doginals/config"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/datagateway"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/drc20"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/sat"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Make sure to implement the Processor interface
var _ indexer.Processor[*types.Block] = (*Processor)(nil)

type Processor struct {
	doginalsDg   datagateway.DoginalsDataGateway
	tracker      *sat.Tracker
	drc20        *drc20.Engine // nil when drc-20 indexing is disabled
	network      common.Network
	config       config.Config
	cleanupFuncs []func(context.Context) error

	firstInscriptionHeight int64
	lastPrunedHeight       int64

	// committed unspent outputs
	outPointCache *lru.Cache[wire.OutPoint, *entity.OutPointEntry]
}

func NewProcessor(doginalsDg datagateway.DoginalsDataGateway, tracker *sat.Tracker, network common.Network, conf config.Config, cleanupFuncs []func(context.Context) error) (*Processor, error) {
	outPointCache, err := lru.New[wire.OutPoint, *entity.OutPointEntry](outPointCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create outPointCache")
	}

	firstHeight := conf.FirstInscriptionHeight
	if firstHeight == 0 {
		firstHeight = firstInscriptionHeight[network]
	}
	drc20StartHeight := conf.Drc20StartHeight
	if drc20StartHeight == 0 {
		drc20StartHeight = firstHeight
	}
	var engine *drc20.Engine
	if conf.EnableDrc20 {
		engine = drc20.NewEngine(drc20StartHeight)
	}
	conf.FirstInscriptionHeight = firstHeight
	conf.Drc20StartHeight = drc20StartHeight
	if conf.MaxReorgDepth <= 0 {
		conf.MaxReorgDepth = config.DefaultMaxReorgDepth
	}

	return &Processor{
		doginalsDg:   doginalsDg,
		tracker:      tracker,
		drc20:        engine,
		network:      network,
		config:       conf,
		cleanupFuncs: cleanupFuncs,

		firstInscriptionHeight: firstHeight,
		lastPrunedHeight:       -1,
		outPointCache:          outPointCache,
	}, nil
}

// VerifyStates implements indexer.Processor.
func (p *Processor) VerifyStates(ctx context.Context) error {
	var (
		state *entity.IndexerState
		tip   = int64(-1)
	)
	if err := p.doginalsDg.View(ctx, func(dg datagateway.DoginalsReaderDataGateway) error {
		var err error
		state, err = dg.GetIndexerState(ctx)
		if err != nil && !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "failed to get indexer state")
		}
		header, err := dg.GetLatestBlock(ctx)
		if err != nil && !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "failed to get latest block")
		}
		if err == nil {
			tip = header.Height
		}
		return nil
	}); err != nil {
		return errors.WithStack(err)
	}

	// if not found, create indexer state
	if state == nil {
		state = &entity.IndexerState{
			CreatedAt:              time.Now().UTC(),
			ClientVersion:          ClientVersion,
			DBVersion:              DBVersion,
			Network:                p.network,
			FirstInscriptionHeight: p.config.FirstInscriptionHeight,
			Drc20StartHeight:       p.config.Drc20StartHeight,
			EnableDrc20:            p.config.EnableDrc20,
		}
		if err := p.doginalsDg.Update(ctx, max(tip, 0), func(dg datagateway.DoginalsDataGatewayWithTx) error {
			return dg.PutIndexerState(ctx, state)
		}); err != nil {
			return errors.Wrap(err, "failed to set indexer state")
		}
		return nil
	}

	if state.DBVersion != DBVersion {
		return errors.Wrapf(errs.ConflictSetting, "db version mismatch: current version is %d. Please upgrade to version %d", state.DBVersion, DBVersion)
	}
	if state.Network != p.network {
		return errors.Wrapf(errs.ConflictSetting, "network mismatch: latest indexed network is %q, configured network is %q. If you want to change the network, please reset the database", state.Network, p.network)
	}
	if state.FirstInscriptionHeight != p.config.FirstInscriptionHeight {
		return errors.Wrapf(errs.ConflictSetting, "first inscription height mismatch: indexed with %d, configured %d. Please reset the database", state.FirstInscriptionHeight, p.config.FirstInscriptionHeight)
	}
	if state.EnableDrc20 != p.config.EnableDrc20 || (state.EnableDrc20 && state.Drc20StartHeight != p.config.Drc20StartHeight) {
		return errors.Wrap(errs.ConflictSetting, "drc-20 settings changed since the database was created. Please reset the database")
	}
	if state.ClientVersion != ClientVersion {
		logger.InfoContext(ctx, "Database was created by another client version",
			slogx.String("created_by", state.ClientVersion),
			slogx.String("current", ClientVersion),
		)
	}
	return nil
}

// CurrentBlock implements indexer.Processor.
func (p *Processor) CurrentBlock(ctx context.Context) (types.BlockHeader, error) {
	var header types.BlockHeader
	err := p.doginalsDg.View(ctx, func(dg datagateway.DoginalsReaderDataGateway) error {
		var err error
		header, err = dg.GetLatestBlock(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			// nothing indexed yet, start from genesis
			return types.BlockHeader{Height: -1}, nil
		}
		return types.BlockHeader{}, errors.Wrap(err, "failed to get latest block")
	}
	return header, nil
}

// GetIndexedBlock implements indexer.Processor.
func (p *Processor) GetIndexedBlock(ctx context.Context, height int64) (types.BlockHeader, error) {
	var block *entity.IndexedBlock
	err := p.doginalsDg.View(ctx, func(dg datagateway.DoginalsReaderDataGateway) error {
		var err error
		block, err = dg.GetIndexedBlockByHeight(ctx, height)
		return err
	})
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "failed to get indexed block")
	}
	return types.BlockHeader{
		Height:    block.Height,
		Hash:      block.Hash,
		PrevBlock: block.PrevBlock,
		Timestamp: block.Timestamp,
	}, nil
}

// Name implements indexer.Processor.
func (p *Processor) Name() string {
	return common.ModuleDoginals.String()
}

// RevertData implements indexer.Processor.
func (p *Processor) RevertData(ctx context.Context, from int64) error {
	state, err := p.getIndexerState(ctx)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.WithStack(err)
	}
	if err := p.doginalsDg.DeleteSinceHeight(ctx, from); err != nil {
		return errors.Wrap(err, "failed to delete data since height")
	}
	// cached outputs may have been created by reverted blocks
	p.outPointCache.Purge()

	// the indexer state goes with the height it was written at
	if state == nil {
		return nil
	}
	if _, err := p.getIndexerState(ctx); !errors.Is(err, errs.NotFound) {
		return errors.WithStack(err)
	}
	if err := p.doginalsDg.Update(ctx, max(from-1, 0), func(dg datagateway.DoginalsDataGatewayWithTx) error {
		return dg.PutIndexerState(ctx, state)
	}); err != nil {
		return errors.Wrap(err, "failed to restore indexer state")
	}
	return nil
}

func (p *Processor) getIndexerState(ctx context.Context) (*entity.IndexerState, error) {
	var state *entity.IndexerState
	err := p.doginalsDg.View(ctx, func(dg datagateway.DoginalsReaderDataGateway) error {
		var err error
		state, err = dg.GetIndexerState(ctx)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get indexer state")
	}
	return state, nil
}

func (p *Processor) Shutdown(ctx context.Context) error {
	var errs []error
	for _, cleanup := range p.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.WithStack(errors.Join(errs...))
}

// prune drops versions that can no longer be reverted to.
func (p *Processor) prune(ctx context.Context, height int64) error {
	below := height - p.config.MaxReorgDepth
	if below <= 0 || below-p.lastPrunedHeight < pruneInterval {
		return nil
	}
	if err := p.doginalsDg.Prune(ctx, below); err != nil {
		return errors.WithStack(err)
	}
	p.lastPrunedHeight = below
	logger.DebugContext(ctx, "Pruned old versions", slogx.Int64("below", below))
	return nil
}
