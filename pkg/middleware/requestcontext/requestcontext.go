// Package requestcontext derives the per-request context.Context (request id, client IP
// and a scoped logger) before handlers run.
package requestcontext

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/gofiber/fiber/v2"
)

// Option enriches the request context. A non-nil error aborts the request.
type Option func(ctx context.Context, c *fiber.Ctx) (context.Context, error)

// RejectError aborts a request with a client-facing status and message.
type RejectError struct {
	Status  int
	Message string
}

func (e *RejectError) Error() string {
	return e.Message
}

// New applies opts in order and stores the result as the user context of the request.
func New(opts ...Option) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		for i, opt := range opts {
			next, err := opt(ctx, c)
			if err != nil {
				return reject(ctx, c, i, err)
			}
			ctx = next
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func reject(ctx context.Context, c *fiber.Ctx, option int, err error) error {
	var rejected *RejectError
	if errors.As(err, &rejected) {
		return errors.WithStack(c.Status(rejected.Status).JSON(common.HttpResponse[any]{Error: &rejected.Message}))
	}

	logger.ErrorContext(ctx, "Failed to build request context",
		slogx.Error(err),
		slog.String("event", "requestcontext_error"),
		slog.Int("option", option),
	)
	msg := "Internal Server Error"
	return errors.WithStack(c.Status(fiber.StatusInternalServerError).JSON(common.HttpResponse[any]{Error: &msg}))
}
