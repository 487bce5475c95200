package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deusflow/newscrawler/internal/app"
	"github.com/deusflow/newscrawler/internal/config"
	"github.com/deusflow/newscrawler/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
)

var flagSettings string

var rootCmd = &cobra.Command{
	Use:           "newscrawler",
	Short:         "Regional news crawler and summarizer",
	Long:          "newscrawler searches regional news, summarizes new articles with a language model and keeps a bounded archive per category.",
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSettings, "settings", "", "path to the settings file (overrides SETTINGS_PATH)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(shouldUpdateCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "newscrawler %s (commit: %s)\n", version, commit)
	},
}

// withApp loads configuration, builds the application and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return run(cmd, config.Load, app.New, fn)
}

// withStorage is withApp for commands that only read or prune the store. It
// needs no model credentials.
func withStorage(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return run(cmd, config.LoadStore, app.OpenStorage, fn)
}

func run(
	cmd *cobra.Command,
	load func() (*config.Config, error),
	open func(context.Context, *config.Config) (*app.App, error),
	fn func(ctx context.Context, a *app.App) error,
) error {
	cfg, err := load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagSettings != "" {
		cfg.SettingsPath = flagSettings
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	defer a.Close()
	return fn(ctx, a)
}
