package common

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gaze-network/doginals-indexer/pkg/dogeutils"
)

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkRegtest Network = "regtest"
)

var chainParams = map[Network]*chaincfg.Params{
	NetworkMainnet: &dogeutils.MainNetParams,
	NetworkTestnet: &dogeutils.TestNetParams,
	NetworkRegtest: &dogeutils.RegressionNetParams,
}

func (n Network) IsSupported() bool {
	_, ok := chainParams[n]
	return ok
}

// ChainParams returns the Dogecoin params of n, or nil if n is unsupported.
func (n Network) ChainParams() *chaincfg.Params {
	return chainParams[n]
}

func (n Network) String() string {
	return string(n)
}
