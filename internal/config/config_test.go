package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gaze-network/doginals-indexer/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
network: testnet
logger:
  output: json
dogecoin_node:
  host: "node:44555"
  user: "doge"
http_server:
  port: 9090
modules:
  doginals:
    database: postgres
    postgres:
      host: db
    enable_drc20: false
    fetch_parallelism: 2
    first_inscription_height: 100
`

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	t.Run("file over defaults", func(t *testing.T) {
		conf := defaultConfig()
		require.NoError(t, read(viper.New(), conf, path))

		assert.Equal(t, common.NetworkTestnet, conf.Network)
		assert.Equal(t, "json", conf.Logger.Output)
		assert.Equal(t, "node:44555", conf.DogecoinNode.Host)
		assert.Equal(t, "doge", conf.DogecoinNode.User)
		assert.Equal(t, "pass", conf.DogecoinNode.Pass, "unset keys keep their default")
		assert.Equal(t, 9090, conf.HTTPServer.Port)

		doginals := conf.Modules.Doginals
		assert.Equal(t, "postgres", doginals.Database)
		assert.Equal(t, "db", doginals.Postgres.Host)
		assert.False(t, doginals.EnableDrc20)
		assert.Equal(t, 2, doginals.FetchParallelism)
		assert.Equal(t, int64(100), doginals.FirstInscriptionHeight)
		assert.Equal(t, int64(1000), doginals.MaxReorgDepth)
		assert.Equal(t, []string{"http"}, doginals.APIHandlers)
	})

	t.Run("environment over file", func(t *testing.T) {
		t.Setenv("NETWORK", "REGTEST")
		t.Setenv("MODULES_DOGINALS_FETCH_PARALLELISM", "16")

		conf := defaultConfig()
		require.NoError(t, read(viper.New(), conf, path))
		assert.Equal(t, common.NetworkRegtest, conf.Network)
		assert.Equal(t, 16, conf.Modules.Doginals.FetchParallelism)
	})

	t.Run("malformed file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("network: [testnet"), 0o600))
		assert.Error(t, read(viper.New(), defaultConfig(), bad))
	})
}
