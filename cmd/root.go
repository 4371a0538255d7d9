// Package cmd defines the CLI commands for the rindo executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/endou0310-byte/rindo/internal/config"
	"github.com/endou0310-byte/rindo/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rindo",
		Short: "Forest-road closure monitor",
		Long: `rindo crawls prefectural and municipal agency sites for forest-road
(林道) closure notices, normalizes what it finds into canonical road-status
events, and serves the result over a small read API.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); built-in defaults apply when omitted")
	cmd.AddCommand(newMonitorCmd(), newServeCmd())
	return cmd
}

// loadEnvironment builds the config and logger shared by all subcommands.
func loadEnvironment() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
