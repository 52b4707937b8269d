package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/usecase"
	"github.com/gaze-network/doginals-indexer/pkg/dogeutils"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
)

type HttpHandler struct {
	usecase *usecase.Usecase
	network common.Network
}

func New(network common.Network, usecase *usecase.Usecase) *HttpHandler {
	return &HttpHandler{
		usecase: usecase,
		network: network,
	}
}

func (h *HttpHandler) resolvePkScript(wallet string) ([]byte, bool) {
	pkScript, err := dogeutils.ToPkScript(h.network.ChainParams(), wallet)
	if err != nil {
		return nil, false
	}
	return pkScript, true
}

// addressFromPkScript returns the address paid by pkScript, or an empty string for non-standard scripts.
func (h *HttpHandler) addressFromPkScript(pkScript []byte) string {
	address, err := dogeutils.PkScriptToAddress(h.network.ChainParams(), pkScript)
	if err != nil {
		logger.Debug("unable to extract address from pkscript", slogx.Error(err))
		return ""
	}
	return address
}

// notFound is a public error that also matches errs.NotFound.
func notFound(message string) error {
	return errors.Mark(errs.NewPublicError(message), errs.NotFound)
}
