// Package cli implements the doctrine command line.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/doctrinekb/internal/app"
	"github.com/markdave123-py/doctrinekb/internal/config"
	"github.com/markdave123-py/doctrinekb/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "doctrine",
	Short: "Military doctrine knowledge base",
	Long: `Ingests military doctrine documents into a chunk store that a MindsDB
knowledge base indexes, and answers questions against it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (environment variables override it)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.Setup(cfg.LogLevel, cfg.LogFormat), nil
}

// loadKBConfig is loadConfig for commands that never touch the chunk store.
func loadKBConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadKBConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.Setup(cfg.LogLevel, cfg.LogFormat), nil
}

func loadApp(ctx context.Context) (*app.App, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.NewApp(ctx, cfg, logger)
}
