package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"energylens/internal/config"
	"energylens/internal/infrastructure"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "energylens",
	Short: "Energy consumption analytics and forecasting",
	Long: `EnergyLens ingests per-consumer consumption spreadsheets, cleans the
readings, derives exploratory aggregations and 7-day demand forecasts,
and serves an interactive local dashboard over the results.

Configuration is read from config.yaml and ENERGYLENS_* environment
variables; environment variables win.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig loads the configuration and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// setupLogger initializes the global logger for the batch commands.
func setupLogger(cfg *config.Config) error {
	if _, err := infrastructure.InitializeLogger(cfg.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	return nil
}
