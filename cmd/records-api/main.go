package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upb/ep-records/app"
	"github.com/upb/ep-records/config"
	"github.com/upb/ep-records/internal/observability"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	// openDependencies connects to the configured databases and wires the application
	openDependencies = app.NewDependencies
)

var rootCmd = &cobra.Command{
	Use:   "records-api",
	Short: "Productive-stage records API",
	Long: `records-api serves the credential gateway and audit trail of the
productive-stage records system, and carries the operational commands used to
prepare its databases.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.New(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = initLogger(cfg)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(instructorsCmd)
	rootCmd.AddCommand(apprenticesCmd)
}

// initLogger builds the process logger and tags it with the environment.
func initLogger(c *config.Config) (*zap.Logger, error) {
	l, err := observability.NewLogger(c.Observability)
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("environment", c.Environment)), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
