package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"energylens/internal/config"
	"energylens/internal/infrastructure"
	"energylens/internal/pipeline"
)

var runGzip bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one batch pipeline run and exit",
	Long: `Runs ingest, cleanse, analyze, forecast and export once, writing
cleaned_consumption.csv and forecast_next_7_days.csv to the reports
directory.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&runGzip, "gzip", false, "also write gzip copies of the reports")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogger(cfg); err != nil {
		return err
	}
	logger := infrastructure.GetLogger()

	paths, err := config.DefaultPaths(cfg)
	if err != nil {
		return fmt.Errorf("resolving paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("preparing directories: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(pipeline.NewStages(cfg, paths, logger, runGzip), nil, logger)
	state, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	printRunSummary(cmd, state)
	return nil
}

func printRunSummary(cmd *cobra.Command, state *pipeline.RunState) {
	cmd.Printf("run %s %s in %s\n", state.ID, state.CurrentStatus(), state.Duration().Round(time.Millisecond))

	if r := state.CleanseReport; r != nil {
		cmd.Printf("  readings:     %d in, %d out\n", r.Input, r.Output)
		cmd.Printf("  interpolated: %d\n", r.Interpolated)
		cmd.Printf("  outliers:     %d z-score, %d iqr\n", r.ZScoreOutliers, r.IQROutliers)
	}
	if s := state.Summary; s != nil {
		cmd.Printf("  consumers:    %d (%s to %s)\n", len(s.Consumers),
			s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"))
	}
	if f := state.Forecasts; f != nil {
		cmd.Printf("  forecasts:    %d generated, %d skipped\n", len(f.Forecasts), len(f.Skipped))
	}
	for _, report := range state.Reports {
		cmd.Printf("  wrote %s\n", report)
	}
}
