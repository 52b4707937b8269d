package migrate

import (
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/internal/config"
	"github.com/gaze-network/doginals-indexer/internal/kvstore/pgkv"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var supportedDrivers = map[string]struct{}{
	"postgres":   {},
	"postgresql": {},
}

type options struct {
	DatabaseURL string
	Verbose     bool
}

func (o *options) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.DatabaseURL, "database", "", "Database url to run migration on. Defaults to modules.doginals.postgres")
	flags.BoolVarP(&o.Verbose, "verbose", "v", false, "Print every applied migration")
}

// parseSteps reads the optional [N] argument. Zero means all migrations.
func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, errors.Wrapf(err, "invalid number of migrations %q", args[0])
	}
	if n < 0 {
		return 0, errors.Errorf("number of migrations must not be negative, got %d", n)
	}
	return n, nil
}

// newMigrate opens the embedded doginals schema against opts.DatabaseURL, or against the
// configured postgres store when it is empty.
func newMigrate(cmd *cobra.Command, opts *options) (*migrate.Migrate, error) {
	databaseURL := opts.DatabaseURL
	if databaseURL == "" {
		databaseURL = config.Load().Modules.Doginals.Postgres.MigrateURL()
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse database URL")
	}
	if _, ok := supportedDrivers[u.Scheme]; !ok {
		return nil, errors.Errorf("unsupported database driver: %s", u.Scheme)
	}

	m, err := pgkv.NewMigrate(databaseURL)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	m.Log = &consoleLogger{w: cmd.OutOrStdout(), verbose: opts.Verbose}
	return m, nil
}

// apply runs all migrations in one direction when steps is zero, otherwise |steps| of them.
func apply(m *migrate.Migrate, steps int, up bool) error {
	var err error
	switch {
	case steps == 0 && up:
		m.Log.Printf("Applying up migrations...\n")
		err = m.Up()
	case steps == 0:
		m.Log.Printf("Applying down migrations...\n")
		err = m.Down()
	case up:
		m.Log.Printf("Applying %d up migrations...\n", steps)
		err = m.Steps(steps)
	default:
		m.Log.Printf("Applying %d down migrations...\n", steps)
		err = m.Steps(-steps)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		m.Log.Printf("Nothing to migrate\n")
		return nil
	}
	return errors.WithStack(err)
}
