package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energylens/pkg/contracts/domain"
)

// fixture: two consumers, two days, readings at 00:00 and 12:00.
// 2024-03-04 is a Monday, 2024-03-05 a Tuesday.
func testDataset() *domain.Dataset {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)
	tuesday := monday.AddDate(0, 0, 1)

	readings := []domain.Reading{
		{Consumer: "a", Timestamp: monday, Consumption: 1},
		{Consumer: "a", Timestamp: monday.Add(12 * time.Hour), Consumption: 3},
		{Consumer: "a", Timestamp: tuesday, Consumption: 5},
		{Consumer: "a", Timestamp: tuesday.Add(12 * time.Hour), Consumption: 7},
		{Consumer: "b", Timestamp: monday, Consumption: 10},
		{Consumer: "b", Timestamp: monday.Add(12 * time.Hour), Consumption: 20},
	}

	return &domain.Dataset{
		Readings:  readings,
		Consumers: []string{"a", "b"},
		Start:     monday,
		End:       tuesday.Add(12 * time.Hour),
	}
}

func TestDailyTotals(t *testing.T) {
	points := DailyTotals(testDataset(), nil)

	require.Len(t, points, 3)
	assert.Equal(t, "a", points[0].Consumer)
	assert.Equal(t, 4.0, points[0].Total) // monday: 1+3
	assert.Equal(t, "b", points[1].Consumer)
	assert.Equal(t, 30.0, points[1].Total)
	assert.Equal(t, "a", points[2].Consumer)
	assert.Equal(t, 12.0, points[2].Total) // tuesday: 5+7
}

func TestDailyTotalsFiltered(t *testing.T) {
	points := DailyTotals(testDataset(), []string{"b"})

	require.Len(t, points, 1)
	assert.Equal(t, "b", points[0].Consumer)
	assert.Equal(t, 30.0, points[0].Total)
}

func TestAverages(t *testing.T) {
	averages := Averages(testDataset(), nil)

	require.Len(t, averages, 2)
	assert.Equal(t, "a", averages[0].Consumer)
	assert.Equal(t, 4.0, averages[0].Average) // (1+3+5+7)/4
	assert.Equal(t, "b", averages[1].Consumer)
	assert.Equal(t, 15.0, averages[1].Average)
}

func TestHourlyProfile(t *testing.T) {
	points := HourlyProfile(testDataset(), nil)

	require.Len(t, points, 4) // hours 0 and 12 for each consumer
	assert.Equal(t, 0, points[0].Hour)
	assert.Equal(t, "a", points[0].Consumer)
	assert.Equal(t, 3.0, points[0].Average) // (1+5)/2
	assert.Equal(t, 0, points[1].Hour)
	assert.Equal(t, "b", points[1].Consumer)
	assert.Equal(t, 10.0, points[1].Average)
	assert.Equal(t, 12, points[2].Hour)
	assert.Equal(t, 5.0, points[2].Average) // (3+7)/2
}

func TestWeekdayProfileMondayFirst(t *testing.T) {
	points := WeekdayProfile(testDataset(), nil)

	require.Len(t, points, 3) // a: Mon+Tue, b: Mon
	assert.Equal(t, time.Monday, points[0].Weekday)
	assert.Equal(t, "a", points[0].Consumer)
	assert.Equal(t, 2.0, points[0].Average) // (1+3)/2
	assert.Equal(t, time.Monday, points[1].Weekday)
	assert.Equal(t, "b", points[1].Consumer)
	assert.Equal(t, time.Tuesday, points[2].Weekday)
	assert.Equal(t, "Tuesday", points[2].Name)
	assert.Equal(t, 6.0, points[2].Average)
}

func TestDistributions(t *testing.T) {
	distributions := Distributions(testDataset(), nil)

	require.Len(t, distributions, 2)

	a := distributions[0]
	assert.Equal(t, "a", a.Consumer)
	assert.Equal(t, 4, a.Count)
	assert.Equal(t, 1.0, a.Min)
	assert.Equal(t, 7.0, a.Max)
	assert.Equal(t, 4.0, a.Mean)
	assert.GreaterOrEqual(t, a.Q3, a.Median)
	assert.GreaterOrEqual(t, a.Median, a.Q1)
}

func TestSummarize(t *testing.T) {
	d := testDataset()
	summary := Summarize(d, 2, 3)

	assert.Equal(t, []string{"a", "b"}, summary.Consumers)
	assert.Equal(t, 6, summary.TotalReadings)
	assert.Equal(t, 2, summary.Interpolated)
	assert.Equal(t, 3, summary.Removed)
	assert.Equal(t, d.Start, summary.Start)
}

func TestFilterUnknownConsumer(t *testing.T) {
	points := DailyTotals(testDataset(), []string{"zzz"})
	assert.Empty(t, points)
}
