package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	pgxslog "github.com/mcosta74/pgx-slog"
)

const (
	DefaultMaxConns = 16
	DefaultMinConns = 0
	DefaultLogLevel = tracelog.LogLevelError
)

type Config struct {
	Host     string `mapstructure:"host"` // default 127.0.0.1
	Port     string `mapstructure:"port"` // default 5432
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`  // default postgres
	SSLMode  string `mapstructure:"ssl_mode"` // default prefer
	URL      string `mapstructure:"url"`      // takes precedence over the fields above

	MaxConns int32 `mapstructure:"max_conns"`
	MinConns int32 `mapstructure:"min_conns"`

	Debug bool `mapstructure:"debug"`
}

// NewPool opens a connection pool and pings it.
func NewPool(ctx context.Context, conf Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(conf.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse postgres config")
	}
	poolConfig.MaxConns = utils.Default(conf.MaxConns, DefaultMaxConns)
	poolConfig.MinConns = utils.Default(conf.MinConns, DefaultMinConns)
	poolConfig.ConnConfig.Tracer = conf.QueryTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to connect to the database")
	}
	return pool, nil
}

// String returns the connection string, URL if set, DSN otherwise.
func (conf Config) String() string {
	if conf.URL != "" {
		return conf.URL
	}
	dsn := fmt.Sprintf("host=%s dbname=%s port=%s sslmode=%s",
		utils.Default(conf.Host, "127.0.0.1"),
		utils.Default(conf.DBName, "postgres"),
		utils.Default(conf.Port, "5432"),
		utils.Default(conf.SSLMode, "prefer"),
	)
	if conf.User != "" {
		dsn += " user=" + conf.User
	}
	if conf.Password != "" {
		dsn += " password=" + conf.Password
	}
	return dsn
}

// MigrateURL returns a postgres:// URL usable by golang-migrate.
func (conf Config) MigrateURL() string {
	if conf.URL != "" {
		return conf.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   utils.Default(conf.Host, "127.0.0.1") + ":" + utils.Default(conf.Port, "5432"),
		Path:   "/" + utils.Default(conf.DBName, "postgres"),
	}
	if conf.User != "" {
		u.User = url.UserPassword(conf.User, conf.Password)
	}
	u.RawQuery = url.Values{"sslmode": {utils.Default(conf.SSLMode, "prefer")}}.Encode()
	return u.String()
}

func (conf Config) QueryTracer() pgx.QueryTracer {
	level := DefaultLogLevel
	if conf.Debug {
		level = tracelog.LogLevelTrace
	}
	return &tracelog.TraceLog{
		Logger:   pgxslog.NewLogger(logger.With("package", "postgres")),
		LogLevel: level,
	}
}
