package errorhandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/gofiber/fiber/v2"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func NewHTTPErrorHandler() func(ctx *fiber.Ctx, err error) error {
	return func(ctx *fiber.Ctx, err error) error {
		if e, ok := errs.AsPublic(err); ok {
			return errors.WithStack(ctx.Status(publicStatus(err)).JSON(errorResponse{
				Error: e.Message(),
				Code:  e.Code(),
			}))
		}
		if e := new(fiber.Error); errors.As(err, &e) {
			return errors.WithStack(ctx.Status(e.Code).JSON(errorResponse{
				Error: e.Error(),
			}))
		}

		logger.ErrorContext(ctx.UserContext(), "Something went wrong, unhandled api error",
			slogx.String("event", "api_unhandled_error"),
			slogx.Error(err),
		)

		return errors.WithStack(ctx.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Error: "Internal Server Error",
		}))
	}
}

// publicStatus picks the status of a public error from the kind it wraps.
func publicStatus(err error) int {
	switch {
	case errors.Is(err, errs.NotFound):
		return fiber.StatusNotFound
	case errors.Is(err, errs.Unsupported):
		return fiber.StatusNotImplemented
	default:
		return fiber.StatusBadRequest
	}
}
