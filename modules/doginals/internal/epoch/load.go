package epoch

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
)

// subsidiesFile is the on-disk format: {"epochs": {"<height>": <sats>, ...}}.
type subsidiesFile struct {
	Epochs map[string]uint64 `json:"epochs"`
}

// LoadBootstrap reads the subsidies of heights [0, n) from the JSON file at path.
// Entries at or above n are ignored.
func LoadBootstrap(path string, n int64) ([]uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read subsidies file")
	}
	return ParseBootstrap(raw, n)
}

func ParseBootstrap(raw []byte, n int64) ([]uint64, error) {
	var file subsidiesFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(errs.InvalidArgument, "subsidies file is not valid json")
	}

	subsidies := make([]uint64, n)
	seen := make([]bool, n)
	for key, subsidy := range file.Epochs {
		height, err := strconv.ParseInt(key, 10, 64)
		if err != nil || height < 0 {
			return nil, errors.Wrapf(errs.InvalidArgument, "invalid epoch key %q", key)
		}
		if height >= n {
			continue
		}
		subsidies[height] = subsidy
		seen[height] = true
	}
	for h, ok := range seen {
		if !ok {
			return nil, errors.Wrapf(errs.InvalidArgument, "subsidy of height %d is missing", h)
		}
	}
	return subsidies, nil
}
