package main

import (
	"github.com/sandevgo/crmchat/internal/config"
	"github.com/sandevgo/crmchat/internal/storage/sqlite"
	"github.com/sandevgo/crmchat/pkg/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		logger := log.FromCtx(ctx)

		appCfg := config.NewAppConfig(ctx)
		if err := initEnv(ctx, appCfg.RuntimePath); err != nil {
			logger.Fatal().Err(err).Msg("failed to init env")
		}

		// NewDB runs all pending migrations on open.
		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return err
		}
		defer db.Close()

		logger.Info().Str("path", appCfg.GetDatabasePath()).Msg("database is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
