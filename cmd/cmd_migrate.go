package cmd

import (
	"github.com/gaze-network/doginals-indexer/cmd/migrate"
	"github.com/spf13/cobra"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the postgres schema of the doginals store",
	}
	cmd.AddCommand(
		migrate.NewMigrateUpCommand(),
		migrate.NewMigrateDownCommand(),
		migrate.NewMigrateVersionCommand(),
	)
	return cmd
}
