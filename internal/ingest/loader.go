package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"energylens/internal/config"
	"energylens/pkg/contracts/domain"
)

// columnMap holds the positions of the recognized columns in a sheet.
type columnMap struct {
	timestamp int
	value     int
	consumer  int // -1 when the sheet has no consumer column
}

// Loader reads raw consumer readings from spreadsheet and CSV files.
type Loader struct {
	formats []string
	logger  *slog.Logger
}

// NewLoader creates a loader using the configured timestamp formats.
func NewLoader(cfg config.DataConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		formats: cfg.TimestampFormats,
		logger:  logger.With(slog.String("component", "ingest")),
	}
}

// LoadDirectory loads every matching file under dir and merges the readings.
// A file that cannot be parsed at all is skipped with a warning; a directory
// yielding no readings is an error.
func (l *Loader) LoadDirectory(ctx context.Context, dir string, patterns []string) ([]domain.Reading, error) {
	files, err := FindInputFiles(dir, patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matching %v in %s", patterns, dir)
	}

	l.logger.InfoContext(ctx, "discovered input files",
		slog.String("dir", dir),
		slog.Int("count", len(files)))

	var all []domain.Reading
	for _, file := range files {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("ingestion cancelled: %w", ctx.Err())
		default:
		}

		readings, err := l.LoadFile(ctx, file)
		if err != nil {
			l.logger.WarnContext(ctx, "failed to load input file",
				slog.String("file", file),
				slog.String("error", err.Error()))
			continue
		}

		all = append(all, readings...)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no readings loaded from %d files in %s", len(files), dir)
	}

	l.logger.InfoContext(ctx, "ingestion complete",
		slog.Int("files", len(files)),
		slog.Int("readings", len(all)))

	return all, nil
}

// LoadFile loads a single input file, dispatching on its extension.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]domain.Reading, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return l.loadExcel(ctx, path)
	case ".csv":
		return l.loadCSV(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
}

// parseRows converts raw sheet rows into readings. The header row is located
// by scanning for timestamp and consumption column names; rows that fail to
// parse are skipped with a warning rather than failing the file.
func (l *Loader) parseRows(ctx context.Context, rows [][]string, source, consumerHint string) ([]domain.Reading, error) {
	headerRow, cols, err := findHeader(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(source), err)
	}

	var readings []domain.Reading
	var skipped int

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		reading, err := l.parseRow(row, cols, consumerHint)
		if err != nil {
			skipped++
			l.logger.WarnContext(ctx, "skipping malformed row",
				slog.String("file", filepath.Base(source)),
				slog.Int("line", i+1),
				slog.String("error", err.Error()))
			continue
		}

		readings = append(readings, reading)
	}

	if skipped > 0 {
		l.logger.InfoContext(ctx, "rows skipped during parse",
			slog.String("file", filepath.Base(source)),
			slog.Int("skipped", skipped),
			slog.Int("parsed", len(readings)))
	}

	return readings, nil
}

// parseRow converts one data row into a Reading.
func (l *Loader) parseRow(row []string, cols columnMap, consumerHint string) (domain.Reading, error) {
	if cols.timestamp >= len(row) {
		return domain.Reading{}, fmt.Errorf("missing timestamp cell")
	}

	ts, err := l.parseTimestamp(strings.TrimSpace(row[cols.timestamp]))
	if err != nil {
		return domain.Reading{}, err
	}

	consumer := consumerHint
	if cols.consumer >= 0 && cols.consumer < len(row) {
		if c := strings.TrimSpace(row[cols.consumer]); c != "" {
			consumer = c
		}
	}
	if consumer == "" {
		return domain.Reading{}, fmt.Errorf("no consumer name for row")
	}

	reading := domain.Reading{
		Consumer:  consumer,
		Timestamp: ts,
	}

	// An empty consumption cell is a missing value, not a malformed row;
	// the cleansing stage decides whether to interpolate it.
	var raw string
	if cols.value < len(row) {
		raw = strings.TrimSpace(row[cols.value])
	}
	if raw == "" {
		reading.Missing = true
		return reading, nil
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("parse consumption %q: %w", raw, err)
	}
	if value < 0 {
		return domain.Reading{}, fmt.Errorf("negative consumption %f", value)
	}
	reading.Consumption = value

	return reading, nil
}

// parseTimestamp tries each configured format in order.
func (l *Loader) parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, format := range l.formats {
		if ts, err := time.ParseInLocation(format, raw, time.Local); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", raw)
}

// findHeader locates the header row and maps the recognized columns.
func findHeader(rows [][]string) (int, columnMap, error) {
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}

		cols := columnMap{timestamp: -1, value: -1, consumer: -1}
		for j, cell := range row {
			header := strings.ToLower(strings.TrimSpace(cell))
			switch {
			case cols.timestamp < 0 && isTimestampHeader(header):
				cols.timestamp = j
			case cols.value < 0 && isConsumptionHeader(header):
				cols.value = j
			case cols.consumer < 0 && isConsumerHeader(header):
				cols.consumer = j
			}
		}

		if cols.timestamp >= 0 && cols.value >= 0 {
			return i, cols, nil
		}
	}

	return -1, columnMap{}, fmt.Errorf("could not find header row with timestamp and consumption columns")
}

func isTimestampHeader(header string) bool {
	for _, key := range []string{"timestamp", "datetime", "date", "time"} {
		if strings.Contains(header, key) {
			return true
		}
	}
	return false
}

func isConsumptionHeader(header string) bool {
	for _, key := range []string{"consumption", "usage", "kwh", "energy", "demand", "load", "value"} {
		if strings.Contains(header, key) {
			return true
		}
	}
	return false
}

func isConsumerHeader(header string) bool {
	for _, key := range []string{"consumer", "customer", "household", "meter", "site"} {
		if strings.Contains(header, key) {
			return true
		}
	}
	return false
}

// isEmptyRow reports whether every cell in the row is blank.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
