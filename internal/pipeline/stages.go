package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"energylens/internal/analytics"
	"energylens/internal/cleanse"
	"energylens/internal/config"
	"energylens/internal/exporter"
	"energylens/internal/forecast"
	"energylens/internal/ingest"
)

// NewStages builds the standard batch pipeline: ingest, cleanse, analyze,
// forecast, export. compress adds gzip copies of the exported reports.
func NewStages(cfg *config.Config, paths *config.Paths, logger *slog.Logger, compress bool) []Stage {
	return []Stage{
		NewIngestStage(ingest.NewLoader(cfg.Data, logger), paths.RawDir, cfg.Data.FilePatterns),
		NewCleanseStage(cleanse.Options{
			ZScoreThreshold: cfg.Cleansing.ZScoreThreshold,
			IQRMultiplier:   cfg.Cleansing.IQRMultiplier,
			MaxGap:          cfg.Cleansing.MaxGap,
		}, logger),
		NewAnalyzeStage(),
		NewForecastStage(forecast.New(cfg.Forecast, logger)),
		NewExportStage(exporter.NewCSVWriter(paths), paths, compress),
	}
}

// IngestStage reads consumption spreadsheets from the raw data directory.
type IngestStage struct {
	loader   *ingest.Loader
	dir      string
	patterns []string
}

func NewIngestStage(loader *ingest.Loader, dir string, patterns []string) *IngestStage {
	return &IngestStage{loader: loader, dir: dir, patterns: patterns}
}

func (s *IngestStage) ID() string   { return StageIDIngest }
func (s *IngestStage) Name() string { return StageNameIngest }

func (s *IngestStage) Execute(ctx context.Context, state *RunState) error {
	readings, err := s.loader.LoadDirectory(ctx, s.dir, s.patterns)
	if err != nil {
		return fmt.Errorf("load directory %s: %w", s.dir, err)
	}

	state.Raw = readings

	if stage := state.Stage(s.ID()); stage != nil {
		stage.SetMetadata("readings", len(readings))
	}
	return nil
}

// CleanseStage deduplicates, interpolates and removes outliers.
type CleanseStage struct {
	opts   cleanse.Options
	logger *slog.Logger
}

func NewCleanseStage(opts cleanse.Options, logger *slog.Logger) *CleanseStage {
	return &CleanseStage{opts: opts, logger: logger}
}

func (s *CleanseStage) ID() string   { return StageIDCleanse }
func (s *CleanseStage) Name() string { return StageNameCleanse }

func (s *CleanseStage) Execute(ctx context.Context, state *RunState) error {
	dataset, report, err := cleanse.Clean(ctx, state.Raw, s.opts, s.logger)
	if err != nil {
		return fmt.Errorf("cleanse readings: %w", err)
	}

	state.Dataset = dataset
	state.CleanseReport = report

	if stage := state.Stage(s.ID()); stage != nil {
		stage.SetMetadata("interpolated", report.Interpolated)
		stage.SetMetadata("zscore_outliers", report.ZScoreOutliers)
		stage.SetMetadata("iqr_outliers", report.IQROutliers)
		stage.SetMetadata("output", report.Output)
	}
	return nil
}

// AnalyzeStage derives the dataset summary used by the dashboard.
type AnalyzeStage struct{}

func NewAnalyzeStage() *AnalyzeStage { return &AnalyzeStage{} }

func (s *AnalyzeStage) ID() string   { return StageIDAnalyze }
func (s *AnalyzeStage) Name() string { return StageNameAnalyze }

func (s *AnalyzeStage) Execute(ctx context.Context, state *RunState) error {
	if state.Dataset == nil {
		return fmt.Errorf("analyze: no dataset from cleanse stage")
	}

	interpolated, removed := 0, 0
	if state.CleanseReport != nil {
		interpolated = state.CleanseReport.Interpolated
		removed = state.CleanseReport.Removed()
	}

	summary := analytics.Summarize(state.Dataset, interpolated, removed)
	state.Summary = &summary

	if stage := state.Stage(s.ID()); stage != nil {
		stage.SetMetadata("consumers", len(summary.Consumers))
		stage.SetMetadata("readings", summary.TotalReadings)
	}
	return nil
}

// ForecastStage produces the per-consumer demand forecasts.
type ForecastStage struct {
	forecaster *forecast.Forecaster
}

func NewForecastStage(f *forecast.Forecaster) *ForecastStage {
	return &ForecastStage{forecaster: f}
}

func (s *ForecastStage) ID() string   { return StageIDForecast }
func (s *ForecastStage) Name() string { return StageNameForecast }

func (s *ForecastStage) Execute(ctx context.Context, state *RunState) error {
	if state.Dataset == nil {
		return fmt.Errorf("forecast: no dataset from cleanse stage")
	}

	set, err := s.forecaster.ForecastAll(ctx, state.Dataset)
	if err != nil {
		return fmt.Errorf("forecast consumers: %w", err)
	}

	state.Forecasts = set

	if stage := state.Stage(s.ID()); stage != nil {
		stage.SetMetadata("forecasts", len(set.Forecasts))
		stage.SetMetadata("skipped", len(set.Skipped))
	}
	return nil
}

// ExportStage writes the cleaned dataset and forecast reports as CSV.
type ExportStage struct {
	writer   *exporter.CSVWriter
	paths    *config.Paths
	compress bool
}

func NewExportStage(writer *exporter.CSVWriter, paths *config.Paths, compress bool) *ExportStage {
	return &ExportStage{writer: writer, paths: paths, compress: compress}
}

func (s *ExportStage) ID() string   { return StageIDExport }
func (s *ExportStage) Name() string { return StageNameExport }

func (s *ExportStage) Execute(ctx context.Context, state *RunState) error {
	if state.Dataset == nil {
		return fmt.Errorf("export: no dataset from cleanse stage")
	}

	if err := s.writer.WriteCleanedDataset(state.Dataset); err != nil {
		return fmt.Errorf("write cleaned dataset: %w", err)
	}
	reports := []string{s.paths.ReportPath(exporter.CleanedDatasetFile)}

	if state.Forecasts != nil {
		if err := s.writer.WriteForecastTable(state.Forecasts); err != nil {
			return fmt.Errorf("write forecast table: %w", err)
		}
		reports = append(reports, s.paths.ReportPath(exporter.ForecastFile))
	}

	if s.compress {
		for _, report := range reports[:len(reports):len(reports)] {
			gz, err := s.writer.GzipCopy(report)
			if err != nil {
				return fmt.Errorf("compress %s: %w", report, err)
			}
			reports = append(reports, gz)
		}
	}

	state.Reports = reports

	if stage := state.Stage(s.ID()); stage != nil {
		stage.SetMetadata("files", reports)
	}
	return nil
}
