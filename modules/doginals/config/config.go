package config

import "github.com/gaze-network/doginals-indexer/internal/postgres"

type Config struct {
	Datasource  string          `mapstructure:"datasource"`   // Datasource to fetch dogecoin blocks e.g. `dogecoin-node`
	Database    string          `mapstructure:"database"`     // Database to store data. `bolt` or `postgres`
	DataDir     string          `mapstructure:"data_dir"`     // Directory of the bolt database.
	APIHandlers []string        `mapstructure:"api_handlers"` // List of API handlers to enable. (e.g. `http`)
	Postgres    postgres.Config `mapstructure:"postgres"`

	FirstInscriptionHeight int64  `mapstructure:"first_inscription_height"` // Blocks below are sat-tracked only. Defaults per network when zero.
	Drc20StartHeight       int64  `mapstructure:"drc20_start_height"`       // First height where drc-20 operations count. Defaults per network when zero.
	EnableDrc20            bool   `mapstructure:"enable_drc20"`
	EnableTxIndex          bool   `mapstructure:"enable_tx_index"` // Store raw transactions by id.
	FetchParallelism       int    `mapstructure:"fetch_parallelism"`
	MaxReorgDepth          int64  `mapstructure:"max_reorg_depth"`
	MaxDelegateHops        int    `mapstructure:"max_delegate_hops"`
	SubsidiesPath          string `mapstructure:"subsidies_path"` // JSON table of the subsidies of the early blocks.
}

const (
	DefaultDatabase         = "bolt"
	DefaultDataDir          = "./data"
	DefaultFetchParallelism = 8
	DefaultMaxReorgDepth    = 1000
	DefaultMaxDelegateHops  = 8
	DefaultSubsidiesPath    = "./subsidies.json"
)

// Default returns the configuration used when a key is not set.
func Default() Config {
	return Config{
		Datasource:       "dogecoin-node",
		Database:         DefaultDatabase,
		DataDir:          DefaultDataDir,
		APIHandlers:      []string{"http"},
		EnableDrc20:      true,
		FetchParallelism: DefaultFetchParallelism,
		MaxReorgDepth:    DefaultMaxReorgDepth,
		MaxDelegateHops:  DefaultMaxDelegateHops,
		SubsidiesPath:    DefaultSubsidiesPath,
	}
}
