package doginals

import (
	"github.com/gaze-network/doginals-indexer/common"
)

const (
	ClientVersion = "v0.1.0"
	DBVersion     = 1
)

// firstInscriptionHeight is the height envelopes are first parsed at, unless configured.
var firstInscriptionHeight = map[common.Network]int64{
	common.NetworkMainnet: 4_600_000,
	common.NetworkTestnet: 4_250_000,
	common.NetworkRegtest: 0,
}

const (
	// outPointCacheSize bounds the cache of unspent outputs read from the store.
	outPointCacheSize = 100_000

	// pruneInterval is how many blocks pass between two prunes of reverted-unreachable versions.
	pruneInterval = 1_000
)
