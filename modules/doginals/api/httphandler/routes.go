package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/v1/doginals")

	r.Get("/block", h.GetCurrentBlock)
	r.Get("/inscriptions/number/:number", h.GetInscriptionByNumber)
	r.Get("/inscriptions/:id", h.GetInscription)
	r.Get("/content/:id", h.GetContent)
	r.Get("/sat/:sat", h.GetSat)
	r.Get("/tx/:txid", h.GetTransaction)
	r.Get("/drc20/ticks/:tick", h.GetTick)
	r.Get("/drc20/balances/:wallet", h.GetBalances)
	r.Get("/drc20/transferable/:wallet", h.GetTransferable)
	return nil
}
