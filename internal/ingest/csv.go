package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"energylens/pkg/contracts/domain"
)

// loadCSV reads consumption readings from a CSV file.
func (l *Loader) loadCSV(ctx context.Context, path string) ([]domain.Reading, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are handled per-row

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV records: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file has no data rows: %s", path)
	}

	return l.parseRows(ctx, records, path, ConsumerFromFilename(path))
}
