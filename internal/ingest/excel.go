package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"energylens/pkg/contracts/domain"
)

// loadExcel reads consumption readings from an Excel workbook. Every sheet
// that yields a usable header contributes rows; a workbook where no sheet
// parses is an error.
func (l *Loader) loadExcel(ctx context.Context, path string) ([]domain.Reading, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	consumerHint := ConsumerFromFilename(path)

	var readings []domain.Reading
	var parsedSheets int

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			l.logger.WarnContext(ctx, "failed to read sheet",
				slog.String("file", path),
				slog.String("sheet", sheet),
				slog.String("error", err.Error()))
			continue
		}
		if len(rows) < 2 {
			continue
		}

		sheetReadings, err := l.parseRows(ctx, rows, path, consumerHint)
		if err != nil {
			l.logger.DebugContext(ctx, "sheet has no reading data",
				slog.String("file", path),
				slog.String("sheet", sheet),
				slog.String("error", err.Error()))
			continue
		}

		parsedSheets++
		readings = append(readings, sheetReadings...)

		l.logger.DebugContext(ctx, "parsed sheet",
			slog.String("file", path),
			slog.String("sheet", sheet),
			slog.Int("readings", len(sheetReadings)))
	}

	if parsedSheets == 0 {
		return nil, fmt.Errorf("no sheet with timestamp and consumption columns in %s", path)
	}

	return readings, nil
}
