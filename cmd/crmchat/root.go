package main

import (
	"context"
	"os"

	"github.com/sandevgo/crmchat/internal/config"
	"github.com/sandevgo/crmchat/pkg/log"
	"github.com/spf13/cobra"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "crmchat",
	Short: "CRMChat — CRM chat assistant service",
	Long:  `CRMChat answers sales-team questions about CRM contacts from ingested orders and conversations.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}
