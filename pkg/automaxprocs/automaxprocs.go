package automaxprocs

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"go.uber.org/automaxprocs/maxprocs"
)

var (
	mu      sync.Mutex
	restore func()
	initial = runtime.GOMAXPROCS(0)
)

// Init sets GOMAXPROCS to the CPU quota of the container, if any.
// An explicit GOMAXPROCS environment variable is left untouched.
func Init() error {
	mu.Lock()
	defer mu.Unlock()

	previous := Current()
	undo, err := maxprocs.Set(
		maxprocs.Min(1),
		maxprocs.Logger(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), slog.String("package", "automaxprocs"))
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to set GOMAXPROCS")
	}
	restore = undo

	_, fromEnv := os.LookupEnv("GOMAXPROCS")
	logger.Info("GOMAXPROCS configured",
		slog.String("package", "automaxprocs"),
		slog.String("event", "set_gomaxprocs"),
		slog.Int("previous", previous),
		slog.Int("current", Current()),
		slog.Bool("from_env", fromEnv),
	)
	return nil
}

// Undo reverts the last Init, or restores the value GOMAXPROCS had at startup.
// It returns the resulting GOMAXPROCS.
func Undo() int {
	mu.Lock()
	defer mu.Unlock()

	if restore != nil {
		restore()
		restore = nil
		return Current()
	}
	runtime.GOMAXPROCS(initial)
	return initial
}

func Current() int {
	return runtime.GOMAXPROCS(0)
}
