package main

import (
	"context"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the principal and audit schemas",
	Long: `Creates the principal tables and the append-only audit table, including
the trigger that rejects updates and deletes on audit rows. Safe to re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := openDependencies(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer deps.Close(context.Background())

		return deps.Migrate(cmd.Context())
	},
}
