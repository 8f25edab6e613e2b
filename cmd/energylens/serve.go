package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"energylens/internal/app"
)

var serveSkipRun bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline and serve the dashboard",
	Long: `Starts the HTTP server with the dashboard, JSON API and websocket.
Unless --skip-run is given, a pipeline run is executed first so the
dashboard has data on first load.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveSkipRun, "skip-run", false, "do not run the pipeline before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !serveSkipRun {
		if _, err := application.RunPipelineOnce(ctx); err != nil {
			// The server is still useful without data, a run can be
			// triggered from the dashboard once inputs are in place.
			application.Logger.Warn("initial pipeline run failed: " + err.Error())
		}
	}

	return application.Run(ctx)
}
