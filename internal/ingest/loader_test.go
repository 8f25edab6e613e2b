package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"energylens/internal/config"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	return NewLoader(config.Default().Data, nil)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConsumerFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"data/raw/household_a.xlsx", "household_a"},
		{"data/raw/factory_1_consumption.csv", "factory_1"},
		{"office-readings.csv", "office"},
		{"MeterB_data.xlsx", "MeterB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ConsumerFromFilename(tt.path), tt.path)
	}
}

func TestFindInputFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "x")
	writeFile(t, dir, "b.xlsx", "x")
	writeFile(t, dir, "notes.txt", "x")
	writeFile(t, dir, "~$b.xlsx", "x") // editor lock file

	files, err := FindInputFiles(dir, []string{"*.xlsx", "*.csv"})
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "a.csv"), files[0])
	assert.Equal(t, filepath.Join(dir, "b.xlsx"), files[1])
}

func TestFindInputFilesMissingDir(t *testing.T) {
	_, err := FindInputFiles(filepath.Join(t.TempDir(), "nope"), []string{"*.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "household_a.csv",
		"Timestamp,Consumption\n"+
			"2024-03-01 00:00:00,1.5\n"+
			"2024-03-01 01:00:00,2.0\n"+
			"2024-03-01 02:00:00,\n"+ // missing value
			"garbage-timestamp,3.0\n"+ // malformed, skipped
			"2024-03-01 03:00:00,2.5\n")

	readings, err := newTestLoader(t).LoadFile(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, readings, 4)
	assert.Equal(t, "household_a", readings[0].Consumer)
	assert.Equal(t, 1.5, readings[0].Consumption)
	assert.True(t, readings[2].Missing)
	assert.Equal(t, 2.5, readings[3].Consumption)
}

func TestLoadCSVConsumerColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "merged.csv",
		"Consumer,Timestamp,Usage (kWh)\n"+
			"Household A,2024-03-01 00:00,1.5\n"+
			"Household B,2024-03-01 00:00,4.0\n")

	readings, err := newTestLoader(t).LoadFile(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, readings, 2)
	assert.Equal(t, "Household A", readings[0].Consumer)
	assert.Equal(t, "Household B", readings[1].Consumer)
	assert.Equal(t, 4.0, readings[1].Consumption)
}

func TestLoadCSVNegativeConsumptionSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "meter.csv",
		"Timestamp,Consumption\n"+
			"2024-03-01 00:00:00,-5\n"+
			"2024-03-01 01:00:00,2.0\n")

	readings, err := newTestLoader(t).LoadFile(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, readings, 1)
	assert.Equal(t, 2.0, readings[0].Consumption)
}

func TestLoadCSVNoHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv", "foo,bar\n1,2\n")

	_, err := newTestLoader(t).LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestLoadExcel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "factory_1.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Timestamp", "Consumption"},
		{"2024-03-01 00:00:00", 10.5},
		{"2024-03-01 01:00:00", 12.0},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	readings, err := newTestLoader(t).LoadFile(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, readings, 2)
	assert.Equal(t, "factory_1", readings[0].Consumer)
	assert.Equal(t, 10.5, readings[0].Consumption)
}

func TestLoadDirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "Timestamp,Consumption\n2024-03-01 00:00:00,1.0\n")
	writeFile(t, dir, "b.csv", "Timestamp,Consumption\n2024-03-01 00:00:00,2.0\n")

	readings, err := newTestLoader(t).LoadDirectory(context.Background(), dir, []string{"*.csv"})
	require.NoError(t, err)

	require.Len(t, readings, 2)
	consumers := map[string]bool{}
	for _, r := range readings {
		consumers[r.Consumer] = true
	}
	assert.True(t, consumers["a"])
	assert.True(t, consumers["b"])
}

func TestLoadDirectorySkipsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.csv", "Timestamp,Consumption\n2024-03-01 00:00:00,1.0\n")
	writeFile(t, dir, "broken.csv", "no,usable,header\n1,2,3\n")

	readings, err := newTestLoader(t).LoadDirectory(context.Background(), dir, []string{"*.csv"})
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "good", readings[0].Consumer)
}

func TestUnsupportedFileType(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.json", "{}")

	_, err := newTestLoader(t).LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
