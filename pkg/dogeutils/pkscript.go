package dogeutils

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
)

// ToPkScript converts an address or a hex encoded pkScript into pkScript bytes.
func ToPkScript(params *chaincfg.Params, from string) ([]byte, error) {
	if from == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "empty input")
	}

	// attempt to parse as address
	if address, err := btcutil.DecodeAddress(from, params); err == nil && address.IsForNet(params) {
		pkScript, err := txscript.PayToAddrScript(address)
		if err != nil {
			return nil, errors.Wrap(err, "error converting address to pkscript")
		}
		return pkScript, nil
	}

	pkScript, err := hex.DecodeString(from)
	if err != nil {
		return nil, errors.Wrap(errs.InvalidArgument, "input is neither an address nor a hex pkscript")
	}
	return pkScript, nil
}

// PkScriptToAddress returns the address paid by pkScript.
// Non-standard and multisig scripts return errs.Unsupported.
func PkScriptToAddress(params *chaincfg.Params, pkScript []byte) (string, error) {
	if len(pkScript) == 0 {
		return "", errors.Wrap(errs.InvalidArgument, "empty pkscript")
	}
	if pkScript[0] == txscript.OP_RETURN {
		return "", errors.Wrap(errs.Unsupported, "OP_RETURN script")
	}
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, params)
	if err != nil {
		return "", errors.Wrap(err, "error extracting addresses from pkscript")
	}
	if len(addrs) != 1 {
		return "", errors.Wrapf(errs.Unsupported, "pkscript pays %d addresses", len(addrs))
	}
	return addrs[0].EncodeAddress(), nil
}
