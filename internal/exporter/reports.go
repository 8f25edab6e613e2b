package exporter

import (
	"fmt"
	"strconv"

	"energylens/pkg/contracts/domain"
)

// Report file names the dashboard and downstream tools read.
const (
	CleanedDatasetFile = "cleaned_consumption.csv"
	ForecastFile       = "forecast_next_7_days.csv"
)

// WriteCleanedDataset exports the merged cleaned dataset as CSV.
// Columns: Consumer, Timestamp, Consumption, Interpolated.
func (w *CSVWriter) WriteCleanedDataset(dataset *domain.Dataset) error {
	if dataset == nil || dataset.Len() == 0 {
		return fmt.Errorf("no dataset to export")
	}

	stream, err := w.CreateStreamWriter(CleanedDatasetFile,
		[]string{"Consumer", "Timestamp", "Consumption", "Interpolated"})
	if err != nil {
		return fmt.Errorf("create cleaned dataset writer: %w", err)
	}

	for _, r := range dataset.Readings {
		record := []string{
			r.Consumer,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(r.Consumption, 'f', 4, 64),
			strconv.FormatBool(r.Interpolated),
		}
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return fmt.Errorf("write cleaned dataset record: %w", err)
		}
	}

	return stream.Close()
}

// WriteForecastTable exports the forecast set as CSV.
// Columns: Date, Consumer, Forecast, Lower, Upper, Trend.
func (w *CSVWriter) WriteForecastTable(set *domain.ForecastSet) error {
	if set == nil || len(set.Forecasts) == 0 {
		return fmt.Errorf("no forecasts to export")
	}

	records := make([][]string, 0, len(set.Forecasts)*set.Horizon)
	for _, fc := range set.Forecasts {
		for _, p := range fc.Points {
			records = append(records, []string{
				p.Date.Format("2006-01-02"),
				p.Consumer,
				strconv.FormatFloat(p.Forecast, 'f', 2, 64),
				strconv.FormatFloat(p.Lower, 'f', 2, 64),
				strconv.FormatFloat(p.Upper, 'f', 2, 64),
				strconv.FormatFloat(p.Trend, 'f', 2, 64),
			})
		}
	}

	return w.WriteSimpleCSV(ForecastFile,
		[]string{"Date", "Consumer", "Forecast", "Lower", "Upper", "Trend"},
		records)
}
