package logger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors/errbase"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
)

type (
	handleFunc func(context.Context, slog.Record) error
	middleware func(handleFunc) handleFunc
)

// middlewareHandler runs every record through middlewares before the wrapped handler.
type middlewareHandler struct {
	next        slog.Handler
	middlewares []middleware
}

func newMiddlewareHandler(next slog.Handler, middlewares ...middleware) *middlewareHandler {
	return &middlewareHandler{next: next, middlewares: middlewares}
}

func (h *middlewareHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *middlewareHandler) Handle(ctx context.Context, rec slog.Record) error {
	handle := h.next.Handle
	for i := len(h.middlewares) - 1; i >= 0; i-- {
		handle = h.middlewares[i](handle)
	}
	return handle(ctx, rec)
}

func (h *middlewareHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &middlewareHandler{next: h.next.WithAttrs(attrs), middlewares: h.middlewares}
}

func (h *middlewareHandler) WithGroup(name string) slog.Handler {
	return &middlewareHandler{next: h.next.WithGroup(name), middlewares: h.middlewares}
}

// errorDetailsMiddleware adds the verbose form of any logged error and,
// when withTrace is set, the stack trace recorded by cockroachdb/errors.
func errorDetailsMiddleware(withTrace bool) middleware {
	return func(next handleFunc) handleFunc {
		return func(ctx context.Context, rec slog.Record) error {
			var extra []slog.Attr
			rec.Attrs(func(attr slog.Attr) bool {
				if attr.Key != slogx.ErrorKey {
					return true
				}
				err, ok := attr.Value.Any().(error)
				if !ok || err == nil {
					return true
				}
				extra = append(extra, slog.String(slogx.ErrorVerboseKey, fmt.Sprintf("%+v", err)))
				if withTrace {
					if st, ok := err.(errbase.StackTraceProvider); ok {
						extra = append(extra, slog.Any(slogx.ErrorStackTraceKey, traceLines(st.StackTrace())))
					}
				}
				return false
			})
			rec.AddAttrs(extra...)
			return next(ctx, rec)
		}
	}
}

func traceLines(frames errbase.StackTrace) []string {
	lines := make([]string, 0, len(frames))
	skipping := true
	for i := len(frames) - 1; i >= 0; i-- {
		pc := uintptr(frames[i]) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			lines = append(lines, "unknown")
			skipping = false
			continue
		}
		name := fn.Name()
		// drop runtime frames at the bottom of the stack
		if skipping && strings.HasPrefix(name, "runtime.") {
			continue
		}
		skipping = false
		file, line := fn.FileLine(pc)
		lines = append(lines, fmt.Sprintf("%s %s:%d", name, file, line))
	}
	return lines
}

func chainReplacers(replacers ...func([]string, slog.Attr) slog.Attr) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, attr slog.Attr) slog.Attr {
		for _, r := range replacers {
			if r != nil {
				attr = r(groups, attr)
			}
		}
		return attr
	}
}

// durationAttrReplacer renders durations as milliseconds.
func durationAttrReplacer(_ []string, attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindDuration {
		attr.Value = slog.Int64Value(attr.Value.Duration().Milliseconds())
	}
	return attr
}

func gcpAttrReplacer(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.MessageKey:
		attr.Key = "message"
	case slog.SourceKey:
		attr.Key = "logging.googleapis.com/sourceLocation"
	case slog.LevelKey:
		attr.Key = "severity"
		if l, ok := attr.Value.Any().(slog.Level); ok {
			attr.Value = slog.StringValue(gcpSeverity(l))
		}
	}
	return attr
}
