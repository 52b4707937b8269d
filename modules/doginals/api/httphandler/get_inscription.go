package httphandler

import (
	"encoding/hex"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type getInscriptionRequest struct {
	Id string `params:"id"`
}

func (r *getInscriptionRequest) Validate() error {
	id, err := url.QueryUnescape(r.Id)
	if err != nil {
		return errors.WithStack(err)
	}
	r.Id = id
	if _, err := ordinals.NewInscriptionIdFromString(r.Id); err != nil {
		return errs.WithPublicMessage(errors.Errorf("id '%s' is not a valid inscription id", r.Id), "validation error")
	}
	return nil
}

type getInscriptionByNumberRequest struct {
	Number uint64 `params:"number"`
}

type inscription struct {
	Id            ordinals.InscriptionId  `json:"id"`
	Number        uint64                  `json:"number"`
	Sat           string                  `json:"sat"`
	ContentType   string                  `json:"contentType"`
	ContentLength int                     `json:"contentLength"`
	Metaprotocol  string                  `json:"metaprotocol,omitempty"`
	Delegate      *ordinals.InscriptionId `json:"delegate,omitempty"`
	Parent        *ordinals.InscriptionId `json:"parent,omitempty"`
	Metadata      string                  `json:"metadata,omitempty"` // hex encoded
	TxHash        string                  `json:"txHash"`
	Height        int64                   `json:"height"`
	Timestamp     int64                   `json:"timestamp"` // unix timestamp
	SatPoint      ordinals.SatPoint       `json:"satpoint"`
	Address       string                  `json:"address"`
	PkScript      string                  `json:"pkScript"`
	Lost          bool                    `json:"lost"`
	TransferCount uint32                  `json:"transferCount"`
}

func (h *HttpHandler) mapInscription(ins *entity.Inscription) inscription {
	return inscription{
		Id:            ins.Id,
		Number:        ins.Number,
		Sat:           ins.Sat.String(),
		ContentType:   ins.Inscription.ContentType,
		ContentLength: len(ins.Inscription.Content),
		Metaprotocol:  ins.Inscription.Metaprotocol,
		Delegate:      ins.Inscription.Delegate,
		Parent:        ins.Inscription.Parent,
		Metadata:      hex.EncodeToString(ins.Inscription.Metadata),
		TxHash:        ins.TxHash.String(),
		Height:        ins.CreatedAtHeight,
		Timestamp:     ins.CreatedAt.Unix(),
		SatPoint:      ins.SatPoint,
		Address:       lo.Ternary(ins.Lost, "", h.addressFromPkScript(ins.PkScript)),
		PkScript:      hex.EncodeToString(ins.PkScript),
		Lost:          ins.Lost,
		TransferCount: ins.TransferCount,
	}
}

type getInscriptionResponse = common.HttpResponse[inscription]

func (h *HttpHandler) GetInscription(ctx *fiber.Ctx) (err error) {
	var req getInscriptionRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	id, _ := ordinals.NewInscriptionIdFromString(req.Id)

	ins, err := h.usecase.GetInscriptionById(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("inscription not found")
		}
		return errors.Wrap(err, "error during GetInscriptionById")
	}

	return errors.WithStack(ctx.JSON(getInscriptionResponse{
		Result: lo.ToPtr(h.mapInscription(ins)),
	}))
}

func (h *HttpHandler) GetInscriptionByNumber(ctx *fiber.Ctx) (err error) {
	var req getInscriptionByNumberRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errs.WithPublicMessage(err, "validation error")
	}

	ins, err := h.usecase.GetInscriptionByNumber(ctx.UserContext(), req.Number)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("inscription not found")
		}
		return errors.Wrap(err, "error during GetInscriptionByNumber")
	}

	return errors.WithStack(ctx.JSON(getInscriptionResponse{
		Result: lo.ToPtr(h.mapInscription(ins)),
	}))
}
