package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gofiber/fiber/v2"
)

type getCurrentBlockResult struct {
	Hash          string `json:"hash"`
	Height        int64  `json:"height"`
	Inscriptions  uint64 `json:"inscriptions"`
	LostSats      string `json:"lostSats"`
	BlockUnixTime int64  `json:"blockTime"`
}

type getCurrentBlockResponse = common.HttpResponse[getCurrentBlockResult]

func (h *HttpHandler) GetCurrentBlock(ctx *fiber.Ctx) (err error) {
	blockHeader, err := h.usecase.GetLatestBlock(ctx.UserContext())
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("no block indexed yet")
		}
		return errors.Wrap(err, "error during GetLatestBlock")
	}
	stats, err := h.usecase.GetStats(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during GetStats")
	}

	resp := getCurrentBlockResponse{
		Result: &getCurrentBlockResult{
			Hash:          blockHeader.Hash.String(),
			Height:        blockHeader.Height,
			Inscriptions:  stats.NextNumber,
			LostSats:      stats.LostSats.String(),
			BlockUnixTime: blockHeader.Timestamp.Unix(),
		},
	}

	return errors.WithStack(ctx.JSON(resp))
}
