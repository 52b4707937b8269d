package httphandler

import (
	"cmp"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type getTickRequest struct {
	Tick string `params:"tick"`
}

type tickInfo struct {
	Tick                string                 `json:"tick"`
	OriginalTick        string                 `json:"originalTick"`
	TotalSupply         decimal.Decimal        `json:"totalSupply"`
	LimitPerMint        decimal.Decimal        `json:"limitPerMint"`
	Decimals            uint16                 `json:"decimals"`
	MintedAmount        decimal.Decimal        `json:"mintedAmount"`
	DeployInscriptionId ordinals.InscriptionId `json:"deployInscriptionId"`
	DeployInscriptionNo uint64                 `json:"deployInscriptionNumber"`
	DeployedBy          string                 `json:"deployedBy"`
	DeployedAt          int64                  `json:"deployedAt"` // unix timestamp
	DeployedAtHeight    int64                  `json:"deployedAtHeight"`
	Completed           bool                   `json:"completed"`
}

type getTickResponse = common.HttpResponse[tickInfo]

func (h *HttpHandler) GetTick(ctx *fiber.Ctx) (err error) {
	var req getTickRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if len(req.Tick) == 0 {
		return errs.NewPublicError("'tick' is required")
	}

	entry, err := h.usecase.GetTickEntry(ctx.UserContext(), req.Tick)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("tick not found")
		}
		return errors.Wrap(err, "error during GetTickEntry")
	}

	return errors.WithStack(ctx.JSON(getTickResponse{
		Result: &tickInfo{
			Tick:                entry.Tick,
			OriginalTick:        entry.OriginalTick,
			TotalSupply:         entry.TotalSupply,
			LimitPerMint:        entry.LimitPerMint,
			Decimals:            entry.Decimals,
			MintedAmount:        entry.MintedAmount,
			DeployInscriptionId: entry.DeployInscriptionId,
			DeployInscriptionNo: entry.DeployInscriptionNumber,
			DeployedBy:          h.addressFromPkScript(entry.DeployedBy),
			DeployedAt:          entry.DeployedAt.Unix(),
			DeployedAtHeight:    entry.DeployedAtHeight,
			Completed:           !entry.Remaining().IsPositive(),
		},
	}))
}

type walletRequest struct {
	Wallet string `params:"wallet"`
	Tick   string `query:"tick"`
}

func (h *HttpHandler) parseWalletRequest(ctx *fiber.Ctx) (walletRequest, []byte, error) {
	var req walletRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return req, nil, errors.WithStack(err)
	}
	if err := ctx.QueryParser(&req); err != nil {
		return req, nil, errors.WithStack(err)
	}
	pkScript, ok := h.resolvePkScript(req.Wallet)
	if !ok {
		return req, nil, errs.NewPublicError("unable to resolve pkscript from \"wallet\"")
	}
	req.Tick = strings.ToLower(req.Tick)
	return req, pkScript, nil
}

type balance struct {
	Tick                string          `json:"tick"`
	OverallBalance      decimal.Decimal `json:"overallBalance"`
	TransferableBalance decimal.Decimal `json:"transferableBalance"`
	AvailableBalance    decimal.Decimal `json:"availableBalance"`
	LastUpdatedAtHeight int64           `json:"lastUpdatedAtHeight"`
}

type getBalancesResult struct {
	Address  string    `json:"address"`
	PkScript string    `json:"pkScript"`
	List     []balance `json:"list"`
}

type getBalancesResponse = common.HttpResponse[getBalancesResult]

func (h *HttpHandler) GetBalances(ctx *fiber.Ctx) (err error) {
	req, pkScript, err := h.parseWalletRequest(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	balances, err := h.usecase.GetBalancesByPkScript(ctx.UserContext(), pkScript)
	if err != nil {
		return errors.Wrap(err, "error during GetBalancesByPkScript")
	}
	balances = lo.Filter(balances, func(b *entity.Balance, _ int) bool {
		return req.Tick == "" || b.Tick == req.Tick
	})
	slices.SortFunc(balances, func(i, j *entity.Balance) int {
		return strings.Compare(i.Tick, j.Tick)
	})

	return errors.WithStack(ctx.JSON(getBalancesResponse{
		Result: &getBalancesResult{
			Address:  h.addressFromPkScript(pkScript),
			PkScript: hex.EncodeToString(pkScript),
			List: lo.Map(balances, func(b *entity.Balance, _ int) balance {
				return balance{
					Tick:                b.Tick,
					OverallBalance:      b.OverallBalance,
					TransferableBalance: b.TransferableBalance,
					AvailableBalance:    b.AvailableBalance(),
					LastUpdatedAtHeight: b.LastUpdatedAtHeight,
				}
			}),
		},
	}))
}

type transferable struct {
	InscriptionId     ordinals.InscriptionId `json:"inscriptionId"`
	InscriptionNumber uint64                 `json:"inscriptionNumber"`
	Tick              string                 `json:"tick"`
	Amount            decimal.Decimal        `json:"amount"`
	CreatedAtHeight   int64                  `json:"createdAtHeight"`
}

type getTransferableResult struct {
	Address  string         `json:"address"`
	PkScript string         `json:"pkScript"`
	List     []transferable `json:"list"`
}

type getTransferableResponse = common.HttpResponse[getTransferableResult]

func (h *HttpHandler) GetTransferable(ctx *fiber.Ctx) (err error) {
	req, pkScript, err := h.parseWalletRequest(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	logs, err := h.usecase.GetTransferableLogsByPkScript(ctx.UserContext(), pkScript)
	if err != nil {
		return errors.Wrap(err, "error during GetTransferableLogsByPkScript")
	}
	logs = lo.Filter(logs, func(l *entity.TransferableLog, _ int) bool {
		return req.Tick == "" || l.Tick == req.Tick
	})
	slices.SortFunc(logs, func(i, j *entity.TransferableLog) int {
		return cmp.Compare(i.InscriptionNumber, j.InscriptionNumber)
	})

	return errors.WithStack(ctx.JSON(getTransferableResponse{
		Result: &getTransferableResult{
			Address:  h.addressFromPkScript(pkScript),
			PkScript: hex.EncodeToString(pkScript),
			List: lo.Map(logs, func(l *entity.TransferableLog, _ int) transferable {
				return transferable{
					InscriptionId:     l.InscriptionId,
					InscriptionNumber: l.InscriptionNumber,
					Tick:              l.Tick,
					Amount:            l.Amount,
					CreatedAtHeight:   l.CreatedAtHeight,
				}
			}),
		},
	}))
}
