package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/pkg/config"
	"github.com/noah-isme/newsroom-api/pkg/database"
	"github.com/noah-isme/newsroom-api/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "newsctl",
	Short:         "Operator tooling for the newsroom API",
	Long:          "newsctl runs maintenance tasks against the newsroom database: schema bootstrap, admin provisioning, session sweeps and source imports.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(sweepSessionsCmd)
	rootCmd.AddCommand(importSourcesCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// runtimeEnv is what every subcommand needs: config, a logger and an open database.
type runtimeEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func openRuntime() (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	return &runtimeEnv{cfg: cfg, logger: logr, db: db}, nil
}

func (e *runtimeEnv) Close() {
	_ = e.logger.Sync()
	_ = e.db.Close()
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openRuntime()
		if err != nil {
			return err
		}
		defer env.Close()

		if err := database.Migrate(cmd.Context(), env.db); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
		return nil
	},
}
