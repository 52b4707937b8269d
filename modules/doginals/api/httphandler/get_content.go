package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gofiber/fiber/v2"
)

// GetContent serves the raw body of an inscription, resolving delegates.
func (h *HttpHandler) GetContent(ctx *fiber.Ctx) (err error) {
	var req getInscriptionRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	id, _ := ordinals.NewInscriptionIdFromString(req.Id)

	content, err := h.usecase.ResolveContent(ctx.UserContext(), id)
	if err != nil {
		switch {
		case errors.Is(err, errs.NotFound):
			return notFound("inscription not found")
		case errors.Is(err, ordinals.ErrDelegateCycle):
			return errs.NewPublicError("delegate chain cannot be resolved")
		}
		return errors.Wrap(err, "error during ResolveContent")
	}

	if content.ContentType != "" {
		ctx.Set(fiber.HeaderContentType, content.ContentType)
	} else {
		ctx.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	if content.ContentEncoding != "" {
		ctx.Set(fiber.HeaderContentEncoding, content.ContentEncoding)
	}
	ctx.Set(fiber.HeaderCacheControl, "public, max-age=1209600, immutable")
	return errors.WithStack(ctx.Send(content.Body))
}
