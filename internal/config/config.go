package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	doginalsconfig "github.com/gaze-network/doginals-indexer/modules/doginals/config"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/gaze-network/doginals-indexer/pkg/middleware/requestcontext"
	"github.com/gaze-network/doginals-indexer/pkg/middleware/requestlogger"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	isInit     bool
	mu         sync.Mutex
	configOnce sync.Once
	config     = defaultConfig()
)

type Config struct {
	EnableModules []string           `mapstructure:"enable_modules"`
	APIOnly       bool               `mapstructure:"api_only"`
	Logger        logger.Config      `mapstructure:"logger"`
	DogecoinNode  DogecoinNodeClient `mapstructure:"dogecoin_node"`
	Network       common.Network     `mapstructure:"network"`
	HTTPServer    HTTPServerConfig   `mapstructure:"http_server"`
	Modules       Modules            `mapstructure:"modules"`
}

type DogecoinNodeClient struct {
	Host       string `mapstructure:"host"`
	User       string `mapstructure:"user"`
	Pass       string `mapstructure:"pass"`
	DisableTLS bool   `mapstructure:"disable_tls"`
}

type Modules struct {
	Doginals doginalsconfig.Config `mapstructure:"doginals"`
}

type HTTPServerConfig struct {
	Port      int                               `mapstructure:"port"`
	Logger    requestlogger.Config              `mapstructure:"logger"`
	RequestIP requestcontext.WithClientIPConfig `mapstructure:"requestip"`
}

func defaultConfig() *Config {
	return &Config{
		EnableModules: []string{"doginals"},
		Logger: logger.Config{
			Output: "TEXT",
		},
		DogecoinNode: DogecoinNodeClient{
			Host:       "127.0.0.1:22555",
			User:       "user",
			Pass:       "pass",
			DisableTLS: true,
		},
		Network: common.NetworkMainnet,
		HTTPServer: HTTPServerConfig{
			Port: 8080,
		},
		Modules: Modules{
			Doginals: doginalsconfig.Default(),
		},
	}
}

// Parse parse the configuration from environment variables and the config file.
// configFile may be empty, `./config.yaml` is used when present.
func Parse(configFile ...string) Config {
	mu.Lock()
	defer mu.Unlock()
	return parse(configFile...)
}

func parse(configFile ...string) Config {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))

	// a missing .env is fine, variables may come from the environment itself
	if err := godotenv.Load(); err != nil {
		logger.DebugContext(ctx, "no .env file loaded", slogx.Error(err))
	}

	if err := read(viper.GetViper(), config, configFile...); err != nil {
		logger.PanicContext(ctx, "Invalid config", slogx.Error(err))
	}

	isInit = true
	logger.InfoContext(ctx, "Loaded config successfully")
	return *config
}

// read loads configFile (or ./config.yaml) into v and decodes v onto conf.
func read(v *viper.Viper, conf *Config, configFile ...string) error {
	if len(configFile) > 0 && configFile[0] != "" {
		v.SetConfigFile(configFile[0])
	} else {
		v.AddConfigPath("./")
		v.SetConfigName("config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		var errNotfound viper.ConfigFileNotFoundError
		if !errors.As(err, &errNotfound) {
			return errors.Wrap(err, "invalid config file")
		}
		logger.Warn("Config file not found, use default value", slogx.Error(err))
	}

	if err := v.Unmarshal(conf); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}
	conf.Network = common.Network(strings.ToLower(string(conf.Network)))
	return nil
}

// Load returns the config, parsing it on first use.
func Load() Config {
	mu.Lock()
	defer mu.Unlock()
	if !isInit {
		configOnce.Do(func() {
			_ = parse()
		})
	}
	return *config
}

// BindPFlag binds a specific key to a pflag (as used by cobra).
// Example (where serverCmd is a Cobra instance):
//
//	serverCmd.Flags().Int("port", 1138, "Port to run Application server on")
//	config.BindPFlag("port", serverCmd.Flags().Lookup("port"))
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Something went wrong, failed to bind flag for config", slog.String("package", "config"), slogx.Error(err))
	}
}
