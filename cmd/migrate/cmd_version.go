package migrate

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

func NewMigrateVersionCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := newMigrate(cmd, opts)
			if err != nil {
				return errors.WithStack(err)
			}
			defer m.Close()

			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "no migration applied")
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "failed to read schema version")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
	opts.bind(cmd)

	return cmd
}
