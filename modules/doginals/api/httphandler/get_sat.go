package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type getSatRequest struct {
	Sat string `params:"sat"`
}

type getSatResult struct {
	Sat         string       `json:"sat"`
	Height      int64        `json:"height"`
	Epoch       int64        `json:"epoch"`
	Offset      uint64       `json:"offset"`
	Decimal     string       `json:"decimal"`
	Rarity      string       `json:"rarity"`
	Inscription *inscription `json:"inscription"`
}

type getSatResponse = common.HttpResponse[getSatResult]

func (h *HttpHandler) GetSat(ctx *fiber.Ctx) (err error) {
	var req getSatRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	sat, err := uint128.FromString(req.Sat)
	if err != nil {
		return errs.NewPublicError("'sat' must be a non-negative integer")
	}

	info, err := h.usecase.GetSat(ctx.UserContext(), sat)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("sat does not exist")
		}
		return errors.Wrap(err, "error during GetSat")
	}

	result := getSatResult{
		Sat:     info.Sat.String(),
		Height:  info.Height,
		Epoch:   info.Epoch,
		Offset:  info.Offset,
		Decimal: info.Decimal(),
		Rarity:  string(info.Rarity),
	}
	if info.Inscription != nil {
		result.Inscription = lo.ToPtr(h.mapInscription(info.Inscription))
	}
	return errors.WithStack(ctx.JSON(getSatResponse{Result: &result}))
}
