package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btclog"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/core/indexer"
	"github.com/gaze-network/doginals-indexer/internal/config"
	"github.com/gaze-network/doginals-indexer/modules/doginals"
	"github.com/gaze-network/doginals-indexer/pkg/automaxprocs"
	"github.com/gaze-network/doginals-indexer/pkg/errorhandler"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/gaze-network/doginals-indexer/pkg/middleware/requestcontext"
	"github.com/gaze-network/doginals-indexer/pkg/middleware/requestlogger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// Modules maps every --modules name to its worker constructor.
var Modules = do.Package(
	do.LazyNamed("doginals", doginals.New),
)

const shutdownTimeout = 60 * time.Second

func NewRunCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the doginals indexer and its API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := automaxprocs.Init(); err != nil {
				logger.Error("Failed to set GOMAXPROCS", slogx.Error(err))
			}
			defer automaxprocs.Undo()

			return run(cmd.Context(), config.Load())
		},
	}

	flags := runCmd.Flags()
	flags.Bool("api-only", false, "Serve the API without indexing new blocks")
	flags.String("modules", "", "Comma separated modules to run. E.g. `doginals`")

	config.BindPFlag("api_only", flags.Lookup("api-only"))
	config.BindPFlag("enable_modules", flags.Lookup("modules"))

	return runCmd
}

func run(parent context.Context, conf config.Config) error {
	if !conf.Network.IsSupported() {
		return errors.Wrapf(errs.Unsupported, "%q network is not supported", conf.Network.String())
	}

	// parent is cancelled on SIGINT/SIGTERM by main
	ctx, stop := context.WithCancel(parent)
	defer stop()

	injector := do.New(Modules)
	do.ProvideValue(injector, conf)
	do.ProvideValue(injector, ctx)
	do.Provide(injector, newDogecoinClient)
	do.Provide(injector, newHTTPServer)

	// workers outlive ctx so they can flush state during shutdown
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	workerCtx = logger.WithContext(workerCtx, slogx.Stringer("network", conf.Network))

	workers, err := startWorkers(workerCtx, stop, injector, conf)
	if err != nil {
		return errors.WithStack(err)
	}

	httpServer := do.MustInvoke[*fiber.App](injector)
	go func() {
		defer stop()

		logger.InfoContext(ctx, "Started HTTP server", slog.Int("port", conf.HTTPServer.Port))
		if err := httpServer.Listen(fmt.Sprintf(":%d", conf.HTTPServer.Port)); err != nil {
			logger.PanicContext(ctx, "HTTP server stopped unexpectedly", slogx.Error(err))
		}
	}()

	logger.InfoContext(workerCtx, "Doginals indexer started", slog.Bool("api_only", conf.APIOnly))
	<-ctx.Done()

	return shutdown(httpServer, workers, injector)
}

func newDogecoinClient(i do.Injector) (*rpcclient.Client, error) {
	ctx := do.MustInvoke[context.Context](i)
	conf := do.MustInvoke[config.Config](i)

	rpcLogger := btclog.NewBackend(os.Stderr).Logger("RPCC")
	rpcLogger.SetLevel(lo.Ternary(conf.Logger.Debug, btclog.LevelDebug, btclog.LevelWarn))
	rpcclient.UseLogger(rpcLogger)

	node := conf.DogecoinNode
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         node.Host,
		User:         node.User,
		Pass:         node.Pass,
		DisableTLS:   node.DisableTLS,
		HTTPPostMode: true,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Dogecoin node configuration")
	}

	start := time.Now()
	height, err := client.GetBlockCount()
	if err != nil {
		return nil, errors.Wrapf(err, "can't connect to Dogecoin Core RPC server %q", node.Host)
	}
	logger.InfoContext(ctx, "Connected to Dogecoin Core RPC server",
		slogx.String("host", node.Host),
		slog.Int64("node_height", height),
		slog.Duration("latency", time.Since(start)),
	)
	return client, nil
}

func newHTTPServer(i do.Injector) (*fiber.App, error) {
	conf := do.MustInvoke[config.Config](i)

	app := fiber.New(fiber.Config{
		AppName:               "Doginals Indexer",
		ErrorHandler:          errorhandler.NewHTTPErrorHandler(),
		DisableStartupMessage: true,
	})
	app.Use(
		favicon.New(),
		cors.New(),
		requestid.New(),
		requestcontext.New(
			requestcontext.WithRequestId(),
			requestcontext.WithClientIP(conf.HTTPServer.RequestIP),
		),
		requestlogger.New(conf.HTTPServer.Logger),
		fiberrecover.New(fiberrecover.Config{
			EnableStackTrace:  true,
			StackTraceHandler: logPanic,
		}),
		compress.New(),
	)

	app.Get("/", func(c *fiber.Ctx) error {
		return errors.WithStack(c.SendStatus(http.StatusOK))
	})
	return app, nil
}

func logPanic(c *fiber.Ctx, e any) {
	buf := make([]byte, 4096)
	buf = buf[:runtime.Stack(buf, false)]
	logger.ErrorContext(c.UserContext(), "Recovered from panic in HTTP handler",
		slogx.Any("panic", e),
		slog.String("stacktrace", string(buf)),
	)
}

// startWorkers resolves every enabled module and, unless running API-only, starts its indexer.
// A worker that exits calls stop so the whole process winds down with it.
func startWorkers(ctx context.Context, stop context.CancelFunc, injector do.Injector, conf config.Config) ([]indexer.IndexerWorker, error) {
	names := lo.Uniq(lo.FilterMap(conf.EnableModules, func(name string, _ int) (string, bool) {
		name = strings.TrimSpace(name)
		return name, name != ""
	}))

	workers := make([]indexer.IndexerWorker, 0, len(names))
	for _, name := range names {
		worker, err := do.InvokeNamed[indexer.IndexerWorker](injector, name)
		if err != nil {
			if errors.Is(err, do.ErrServiceNotFound) {
				return nil, errors.Wrapf(errs.Unsupported, "module %q", name)
			}
			return nil, errors.Wrapf(err, "can't init module %q", name)
		}
		workers = append(workers, worker)

		if conf.APIOnly {
			continue
		}
		ctx := logger.WithContext(ctx, slogx.String("module", name))
		go func() {
			defer stop()

			logger.InfoContext(ctx, "Starting indexer")
			if err := worker.Run(ctx); err != nil {
				logger.PanicContext(ctx, "Indexer stopped with error", slogx.Error(err))
			}
			logger.InfoContext(ctx, "Indexer stopped, shutting down")
		}()
	}
	return workers, nil
}

// shutdown stops the API first, then the workers, then every injected service.
// A second signal or an overrun of the grace period exits immediately.
func shutdown(httpServer *fiber.App, workers []indexer.IndexerWorker, injector do.Injector) error {
	go func() {
		force, cancel := signalContext(context.Background())
		defer cancel()

		select {
		case <-force.Done():
			logger.Fatal("Received exit signal again, forcing shutdown")
		case <-time.After(shutdownTimeout + 15*time.Second):
			logger.Fatal("Shutdown timeout exceeded, forcing shutdown")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.ShutdownWithContext(ctx); err != nil {
		logger.Error("Failed to shutdown HTTP server", slogx.Error(err))
	}
	for _, worker := range workers {
		if err := worker.ShutdownWithContext(ctx); err != nil {
			logger.Error("Failed to shutdown indexer", slogx.Error(err))
		}
	}
	if err := injector.Shutdown(); err != nil {
		return errors.Wrap(err, "failed to shutdown services")
	}
	return nil
}
