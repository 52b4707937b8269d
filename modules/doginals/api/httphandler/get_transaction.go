package httphandler

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gofiber/fiber/v2"
)

type getTransactionRequest struct {
	TxId string `params:"txid"`
}

type getTransactionResult struct {
	TxId string `json:"txid"`
	Hex  string `json:"hex"`
}

type getTransactionResponse = common.HttpResponse[getTransactionResult]

func (h *HttpHandler) GetTransaction(ctx *fiber.Ctx) (err error) {
	var req getTransactionRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	txHash, err := chainhash.NewHashFromStr(req.TxId)
	if err != nil {
		return errs.NewPublicError("'txid' is not a valid transaction hash")
	}

	tx, err := h.usecase.GetTransaction(ctx.UserContext(), *txHash)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("transaction not found")
		}
		return errors.Wrap(err, "error during GetTransaction")
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return errors.Wrap(err, "can't serialize transaction")
	}
	return errors.WithStack(ctx.JSON(getTransactionResponse{
		Result: &getTransactionResult{
			TxId: tx.TxHash().String(),
			Hex:  hex.EncodeToString(buf.Bytes()),
		},
	}))
}
