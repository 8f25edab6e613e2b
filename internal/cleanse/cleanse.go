// Package cleanse turns raw merged readings into the cleaned dataset the
// analytics and forecasting layers consume: duplicates removed, short gaps
// interpolated, outliers dropped by Z-score and IQR fences.
package cleanse

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"energylens/pkg/contracts/domain"
)

// Options tunes the cleansing passes. Zero values are invalid; callers build
// Options from config.CleansingConfig.
type Options struct {
	ZScoreThreshold float64
	IQRMultiplier   float64
	// MaxGap is the longest run of consecutive missing readings that will be
	// linearly interpolated. Longer gaps are dropped.
	MaxGap int
}

// Report describes what cleansing did to the data.
type Report struct {
	Input          int `json:"input"`
	Duplicates     int `json:"duplicates"`
	Interpolated   int `json:"interpolated"`
	DroppedMissing int `json:"dropped_missing"`
	ZScoreOutliers int `json:"zscore_outliers"`
	IQROutliers    int `json:"iqr_outliers"`
	Output         int `json:"output"`
}

// Removed returns the total number of outlier readings removed.
func (r *Report) Removed() int {
	return r.ZScoreOutliers + r.IQROutliers
}

// Clean runs the full cleansing pass over merged raw readings and assembles
// the dataset. Each consumer's series is cleaned independently so a heavy
// consumer cannot mask another's outliers.
func Clean(ctx context.Context, readings []domain.Reading, opts Options, logger *slog.Logger) (*domain.Dataset, *Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ZScoreThreshold <= 0 {
		return nil, nil, fmt.Errorf("zscore threshold must be positive, got %f", opts.ZScoreThreshold)
	}
	if opts.IQRMultiplier <= 0 {
		return nil, nil, fmt.Errorf("iqr multiplier must be positive, got %f", opts.IQRMultiplier)
	}
	if len(readings) == 0 {
		return nil, nil, fmt.Errorf("no readings to clean")
	}

	report := &Report{Input: len(readings)}

	grouped := make(map[string][]domain.Reading)
	for _, r := range readings {
		grouped[r.Consumer] = append(grouped[r.Consumer], r)
	}

	consumers := make([]string, 0, len(grouped))
	for consumer := range grouped {
		consumers = append(consumers, consumer)
	}
	sort.Strings(consumers)

	var cleaned []domain.Reading
	kept := make([]string, 0, len(consumers))
	for _, consumer := range consumers {
		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("cleansing cancelled: %w", ctx.Err())
		default:
		}

		series := grouped[consumer]

		series, dupes := dedupe(series)
		report.Duplicates += dupes

		series, filled, droppedMissing := interpolate(series, opts.MaxGap)
		report.Interpolated += filled
		report.DroppedMissing += droppedMissing

		series, zRemoved := removeZScoreOutliers(series, opts.ZScoreThreshold)
		report.ZScoreOutliers += zRemoved

		series, iqrRemoved := removeIQROutliers(series, opts.IQRMultiplier)
		report.IQROutliers += iqrRemoved

		if len(series) == 0 {
			logger.WarnContext(ctx, "consumer series fully removed",
				slog.String("consumer", consumer))
			continue
		}
		kept = append(kept, consumer)

		logger.DebugContext(ctx, "cleaned consumer series",
			slog.String("consumer", consumer),
			slog.Int("readings", len(series)),
			slog.Int("interpolated", filled),
			slog.Int("zscore_outliers", zRemoved),
			slog.Int("iqr_outliers", iqrRemoved))

		cleaned = append(cleaned, series...)
	}

	if len(cleaned) == 0 {
		return nil, nil, fmt.Errorf("cleansing removed all %d readings", len(readings))
	}

	report.Output = len(cleaned)

	dataset := &domain.Dataset{
		Readings:  cleaned,
		Consumers: kept,
		Start:     cleaned[0].Timestamp,
		End:       cleaned[0].Timestamp,
	}
	for _, r := range cleaned {
		if r.Timestamp.Before(dataset.Start) {
			dataset.Start = r.Timestamp
		}
		if r.Timestamp.After(dataset.End) {
			dataset.End = r.Timestamp
		}
	}

	logger.InfoContext(ctx, "cleansing complete",
		slog.Int("input", report.Input),
		slog.Int("output", report.Output),
		slog.Int("interpolated", report.Interpolated),
		slog.Int("outliers_removed", report.Removed()))

	return dataset, report, nil
}

// dedupe sorts a consumer's series by timestamp and removes readings that
// share a timestamp, keeping the first occurrence.
func dedupe(series []domain.Reading) ([]domain.Reading, int) {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})

	var out []domain.Reading
	var last time.Time
	dupes := 0
	for i, r := range series {
		if i > 0 && r.Timestamp.Equal(last) {
			dupes++
			continue
		}
		out = append(out, r)
		last = r.Timestamp
	}
	return out, dupes
}
