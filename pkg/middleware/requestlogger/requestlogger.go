// Package requestlogger writes one structured log line per HTTP request.
package requestlogger

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/gaze-network/doginals-indexer/pkg/middleware/requestcontext"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type Config struct {
	WithRequestHeader    bool     `mapstructure:"request_header"`
	WithRequestQuery     bool     `mapstructure:"request_query"`
	Disable              bool     `mapstructure:"disable"` // suppress INFO lines, errors are still logged
	HiddenRequestHeaders []string `mapstructure:"hidden_request_headers"`
}

// New logs every request once it has been served. Errors from downstream handlers
// are passed to the app's ErrorHandler first so the logged status is the one sent.
func New(config Config) fiber.Handler {
	hidden := lo.SliceToMap(config.HiddenRequestHeaders, func(h string) (string, struct{}) {
		return strings.ToLower(strings.TrimSpace(h)), struct{}{}
	})

	return func(c *fiber.Ctx) error {
		start := time.Now()

		chainErr := c.Next()
		if chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}
		if config.Disable && level == slog.LevelInfo {
			return nil
		}

		attrs := []slog.Attr{
			slog.String("event", "api_request"),
			slog.Duration("latency", time.Since(start)),
			{Key: "request", Value: slog.GroupValue(requestAttrs(c, config, hidden)...)},
			{Key: "response", Value: slog.GroupValue(
				slog.Int("status", status),
				slog.Int("length", len(c.Response().Body())),
			)},
		}
		if level == slog.LevelError {
			attrs = append(attrs, slogx.Error(lo.Ternary(chainErr != nil, chainErr, error(fiber.NewError(status)))))
		}

		logger.LogAttrs(c.UserContext(), level, "Request completed", attrs...)
		return nil
	}
}

func requestAttrs(c *fiber.Ctx, config Config, hidden map[string]struct{}) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.String("route", c.Route().Path),
		slog.String("ip", requestcontext.GetClientIP(c.UserContext())),
		slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
	}
	if params := c.AllParams(); len(params) > 0 {
		attrs = append(attrs, slog.Any("params", params))
	}
	if config.WithRequestQuery {
		attrs = append(attrs, slog.String("query", string(c.Request().URI().QueryString())))
	}
	if config.WithRequestHeader {
		headers := make([]any, 0)
		for k, v := range c.GetReqHeaders() {
			if _, ok := hidden[strings.ToLower(k)]; ok {
				continue
			}
			headers = append(headers, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("header", headers...))
	}
	return attrs
}
