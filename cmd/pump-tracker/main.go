// Package main implements the pump-tracker CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stepamak/pump-tracker/internal/config"
	"github.com/stepamak/pump-tracker/internal/logger"
)

var (
	// configPath is the optional YAML config file
	configPath string
	// envFile is loaded into the environment before PUMP_* variables are read
	envFile string
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pump-tracker",
	Short: "Track newly created pump tokens from a websocket feed",
	Long: `pump-tracker connects to a token feed, decodes every announced token,
filters it against the configured criteria and keeps the most recent matches.

Configuration is read from built-in defaults, an optional YAML file, a .env file
and PUMP_* environment variables, in that order.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before environment overrides")
}

// setup loads the configuration and installs the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := cfg.Logger.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	logger.SetDefault(log)
	return cfg, log, nil
}
