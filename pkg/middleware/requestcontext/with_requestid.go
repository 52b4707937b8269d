package requestcontext

import (
	"context"

	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

type requestIdKey struct{}

// GetRequestId returns the request id set by WithRequestId, or "".
func GetRequestId(ctx context.Context) string {
	id, _ := ctx.Value(requestIdKey{}).(string)
	return id
}

// WithRequestId reuses the id assigned by the requestid middleware, then the
// X-Request-ID header of the caller, and generates one otherwise.
func WithRequestId() Option {
	return func(ctx context.Context, c *fiber.Ctx) (context.Context, error) {
		id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		if id == "" {
			id = c.Get(fiber.HeaderXRequestID)
			if id == "" {
				id = fiberutils.UUIDv4()
			}
			c.Set(fiber.HeaderXRequestID, id)
			c.Locals(requestid.ConfigDefault.ContextKey, id)
		}

		ctx = context.WithValue(ctx, requestIdKey{}, id)
		return logger.WithContext(ctx, slogx.String("request_id", id)), nil
	}
}
