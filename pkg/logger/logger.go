// nolint: sloglint
package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// DefaultLevel is the level used before Init is called.
const DefaultLevel = slog.LevelDebug

var (
	lvl = new(slog.LevelVar)

	// root logger, replaced by Init
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: levelAttrReplacer,
	}))
)

func init() {
	lvl.Set(DefaultLevel)
	slog.SetDefault(logger)
}

// Config is the logger configuration.
type Config struct {
	// Output is the output format: "text" (default), "json" or "gcp" (Cloud Logging compatible JSON).
	Output string `mapstructure:"output"`

	// Debug enables debug level, source locations and verbose error traces.
	Debug bool `mapstructure:"debug"`
}

// Init replaces the root logger (and slog's default) according to cfg.
func Init(cfg Config) error {
	opts := &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: chainReplacers(levelAttrReplacer, durationAttrReplacer),
	}
	middlewares := []middleware{errorDetailsMiddleware(false)}

	lvl.Set(slog.LevelInfo)
	if cfg.Debug {
		lvl.Set(slog.LevelDebug)
		opts.AddSource = true
		middlewares = []middleware{errorDetailsMiddleware(true)}
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Output) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "gcp":
		opts.AddSource = true
		opts.ReplaceAttr = chainReplacers(gcpAttrReplacer, opts.ReplaceAttr)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "", "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		return &unknownOutputError{output: cfg.Output}
	}

	logger = slog.New(newMiddlewareHandler(handler, middlewares...))
	slog.SetDefault(logger)
	return nil
}

type unknownOutputError struct{ output string }

func (e *unknownOutputError) Error() string {
	return "logger: unknown output format " + e.output
}

// SetLevel sets the minimum reporting level and returns the previous one.
func SetLevel(level slog.Level) (old slog.Level) {
	old = lvl.Level()
	lvl.Set(level)
	return old
}

// With returns the root logger with args attached.
func With(args ...any) *slog.Logger {
	return logger.With(args...)
}

func Debug(msg string, args ...any) {
	log(context.Background(), logger, slog.LevelDebug, msg, args...)
}

func Info(msg string, args ...any) {
	log(context.Background(), logger, slog.LevelInfo, msg, args...)
}

func Warn(msg string, args ...any) {
	log(context.Background(), logger, slog.LevelWarn, msg, args...)
}

func Error(msg string, args ...any) {
	log(context.Background(), logger, slog.LevelError, msg, args...)
}

// Panic logs at LevelPanic and then panics with msg.
func Panic(msg string, args ...any) {
	log(context.Background(), logger, LevelPanic, msg, args...)
	panic(msg)
}

// Fatal logs at LevelFatal and exits the process with status 1.
func Fatal(msg string, args ...any) {
	log(context.Background(), logger, LevelFatal, msg, args...)
	os.Exit(1)
}

// log must be called directly by an exported function of this package,
// the caller depth used for the source location depends on it.
func log(ctx context.Context, l *slog.Logger, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip [Callers, log, exported caller]

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}
