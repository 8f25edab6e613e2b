package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"energylens/internal/analytics"
	"energylens/internal/cleanse"
	"energylens/internal/config"
	"energylens/internal/infrastructure"
	"energylens/internal/ingest"
	"energylens/pkg/contracts/domain"
)

var (
	inspectRaw      bool
	inspectConsumer string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize the input data without writing reports",
	Long: `Loads and cleans the input spreadsheets, then prints the dataset
summary as JSON. With --raw the cleansing step is skipped so the
summary reflects the files as-is. With --consumer the summary covers
a single consumer's readings.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectRaw, "raw", false, "summarize raw readings without cleansing")
	inspectCmd.Flags().StringVar(&inspectConsumer, "consumer", "", "restrict the summary to one consumer")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
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

	ctx := context.Background()

	loader := ingest.NewLoader(cfg.Data, logger)
	readings, err := loader.LoadDirectory(ctx, paths.RawDir, cfg.Data.FilePatterns)
	if err != nil {
		return fmt.Errorf("loading input files: %w", err)
	}

	if inspectConsumer != "" {
		filtered := readings[:0:0]
		for _, r := range readings {
			if r.Consumer == inspectConsumer {
				filtered = append(filtered, r)
			}
		}
		if len(filtered) == 0 {
			return fmt.Errorf("no readings found for consumer %q", inspectConsumer)
		}
		readings = filtered
	}

	payload := map[string]interface{}{"raw_mode": inspectRaw}
	if inspectConsumer != "" {
		payload["consumer"] = inspectConsumer
	}

	if inspectRaw {
		summary := analytics.Summarize(rawDataset(readings), 0, 0)
		payload["summary"] = summary
	} else {
		dataset, report, err := cleanse.Clean(ctx, readings, cleanse.Options{
			ZScoreThreshold: cfg.Cleansing.ZScoreThreshold,
			IQRMultiplier:   cfg.Cleansing.IQRMultiplier,
			MaxGap:          cfg.Cleansing.MaxGap,
		}, logger)
		if err != nil {
			return fmt.Errorf("cleansing readings: %w", err)
		}
		payload["summary"] = analytics.Summarize(dataset, report.Interpolated, report.Removed())
		payload["cleanse"] = report
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	cmd.Println(string(out))
	return nil
}

// rawDataset assembles a dataset from observed readings without any
// cleansing, for comparing against the cleaned summary.
func rawDataset(readings []domain.Reading) *domain.Dataset {
	consumers := make(map[string]bool)
	d := &domain.Dataset{}

	for _, r := range readings {
		if r.Missing {
			continue
		}
		d.Readings = append(d.Readings, r)
		consumers[r.Consumer] = true
		if d.Start.IsZero() || r.Timestamp.Before(d.Start) {
			d.Start = r.Timestamp
		}
		if r.Timestamp.After(d.End) {
			d.End = r.Timestamp
		}
	}

	d.Consumers = make([]string, 0, len(consumers))
	for c := range consumers {
		d.Consumers = append(d.Consumers, c)
	}
	sort.Strings(d.Consumers)
	return d
}
