package cleanse

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"energylens/pkg/contracts/domain"
)

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)

func hourly(consumer string, values ...float64) []domain.Reading {
	readings := make([]domain.Reading, len(values))
	for i, v := range values {
		readings[i] = domain.Reading{
			Consumer:    consumer,
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			Consumption: v,
		}
	}
	return readings
}

func defaultOptions() Options {
	return Options{ZScoreThreshold: 3.0, IQRMultiplier: 1.5, MaxGap: 3}
}

func TestCleanRemovesExtremeOutlier(t *testing.T) {
	series := hourly("a",
		10, 11, 9, 10, 12, 11, 10, 9, 11, 10,
		10, 11, 9, 10, 12, 11, 10, 9, 11, 500) // obvious spike

	dataset, report, err := Clean(context.Background(), series, defaultOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, 19, dataset.Len())
	assert.Equal(t, 1, report.Removed())
	for _, r := range dataset.Readings {
		assert.Less(t, r.Consumption, 100.0)
	}
}

// After cleansing, no surviving value may exceed the Z-score threshold
// against the cleaned series' own moments.
func TestCleanZScoreInvariant(t *testing.T) {
	values := []float64{
		5, 6, 5.5, 7, 6.2, 5.8, 6.1, 40, 5.9, 6.3,
		5.7, 80, 6.0, 5.5, 6.4, 5.2, 6.6, 5.9, 120, 6.1,
		5.8, 6.2, 5.4, 6.0, 5.6,
	}
	series := hourly("a", values...)

	dataset, _, err := Clean(context.Background(), series, defaultOptions(), nil)
	require.NoError(t, err)

	cleaned := make([]float64, 0, dataset.Len())
	for _, r := range dataset.Readings {
		cleaned = append(cleaned, r.Consumption)
	}

	mean := stat.Mean(cleaned, nil)
	std := stat.StdDev(cleaned, nil)
	require.Greater(t, std, 0.0)
	for _, v := range cleaned {
		assert.LessOrEqual(t, math.Abs((v-mean)/std), 3.0)
	}
}

func TestInterpolateFillsShortGap(t *testing.T) {
	series := hourly("a", 10, 0, 0, 16, 18)
	series[1].Missing = true
	series[2].Missing = true

	out, filled, dropped := interpolate(series, 3)

	require.Len(t, out, 5)
	assert.Equal(t, 2, filled)
	assert.Equal(t, 0, dropped)
	assert.InDelta(t, 12.0, out[1].Consumption, 1e-9)
	assert.InDelta(t, 14.0, out[2].Consumption, 1e-9)
	assert.True(t, out[1].Interpolated)
	assert.False(t, out[3].Interpolated)
}

func TestInterpolateDropsLongGap(t *testing.T) {
	series := hourly("a", 10, 0, 0, 0, 0, 20)
	for i := 1; i <= 4; i++ {
		series[i].Missing = true
	}

	out, filled, dropped := interpolate(series, 3)

	require.Len(t, out, 2)
	assert.Equal(t, 0, filled)
	assert.Equal(t, 4, dropped)
}

func TestInterpolateDropsEdgeGaps(t *testing.T) {
	series := hourly("a", 0, 10, 12, 0)
	series[0].Missing = true
	series[3].Missing = true

	out, filled, dropped := interpolate(series, 3)

	require.Len(t, out, 2)
	assert.Equal(t, 0, filled)
	assert.Equal(t, 2, dropped)
}

func TestRemoveIQROutliers(t *testing.T) {
	series := hourly("a", 10, 11, 9, 10, 12, 11, 10, 9, 11, 10, 300)

	out, removed := removeIQROutliers(series, 1.5)

	assert.Equal(t, 1, removed)
	require.Len(t, out, 10)
	for _, r := range out {
		assert.Less(t, r.Consumption, 100.0)
	}
}

func TestRemoveIQROutliersConstantSeries(t *testing.T) {
	series := hourly("a", 5, 5, 5, 5, 5)

	out, removed := removeIQROutliers(series, 1.5)

	assert.Equal(t, 0, removed)
	assert.Len(t, out, 5)
}

func TestDedupe(t *testing.T) {
	series := hourly("a", 1, 2, 3)
	dup := series[1]
	dup.Consumption = 99
	series = append(series, dup)

	out, dupes := dedupe(series)

	assert.Equal(t, 1, dupes)
	require.Len(t, out, 3)
	assert.Equal(t, 2.0, out[1].Consumption) // first occurrence wins
}

func TestCleanPerConsumerIsolation(t *testing.T) {
	// Consumer b's large but internally consistent values must survive the
	// presence of consumer a's small values.
	series := append(
		hourly("a", 1, 1.1, 0.9, 1, 1.2, 1.1, 1, 0.9, 1.1, 1),
		hourly("b", 1000, 1010, 990, 1000, 1020, 1010, 1000, 990, 1010, 1000)...)

	dataset, report, err := Clean(context.Background(), series, defaultOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Removed())
	assert.Equal(t, 20, dataset.Len())
	assert.Equal(t, []string{"a", "b"}, dataset.Consumers)
}

func TestCleanDatasetBounds(t *testing.T) {
	series := hourly("a", 1, 2, 3, 4)

	dataset, _, err := Clean(context.Background(), series, defaultOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, base, dataset.Start)
	assert.Equal(t, base.Add(3*time.Hour), dataset.End)
}

func TestCleanValidatesOptions(t *testing.T) {
	_, _, err := Clean(context.Background(), hourly("a", 1, 2), Options{ZScoreThreshold: 0, IQRMultiplier: 1.5}, nil)
	require.Error(t, err)

	_, _, err = Clean(context.Background(), hourly("a", 1, 2), Options{ZScoreThreshold: 3, IQRMultiplier: 0}, nil)
	require.Error(t, err)
}

func TestCleanEmptyInput(t *testing.T) {
	_, _, err := Clean(context.Background(), nil, defaultOptions(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no readings")
}

func TestCleanDropsFullyRemovedConsumer(t *testing.T) {
	series := hourly("a", 10, 11, 9, 10, 12, 11, 10, 9, 11, 10)

	ghost := hourly("b", 0, 0, 0, 0)
	for i := range ghost {
		ghost[i].Missing = true
	}
	series = append(series, ghost...)

	dataset, report, err := Clean(context.Background(), series, defaultOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, dataset.Consumers)
	assert.Equal(t, 4, report.DroppedMissing)
	for _, r := range dataset.Readings {
		assert.Equal(t, "a", r.Consumer)
	}
}
