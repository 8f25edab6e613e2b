package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energylens/internal/config"
	apierrors "energylens/internal/errors"
	"energylens/pkg/contracts/domain"
)

// 2024-03-04 is a Monday.
var seriesStart = time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)

// syntheticDataset builds days of hourly readings for one consumer whose
// daily total follows base + slope*day + weekendBoost on Sat/Sun.
func syntheticDataset(consumer string, days int, base, slope, weekendBoost float64) *domain.Dataset {
	var readings []domain.Reading
	for day := 0; day < days; day++ {
		date := seriesStart.AddDate(0, 0, day)
		total := base + slope*float64(day)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			total += weekendBoost
		}
		// Spread the daily total over 24 hourly readings.
		for h := 0; h < 24; h++ {
			readings = append(readings, domain.Reading{
				Consumer:    consumer,
				Timestamp:   date.Add(time.Duration(h) * time.Hour),
				Consumption: total / 24,
			})
		}
	}
	return &domain.Dataset{
		Readings:  readings,
		Consumers: []string{consumer},
		Start:     seriesStart,
		End:       seriesStart.AddDate(0, 0, days-1),
	}
}

func newForecaster() *Forecaster {
	return New(config.ForecastConfig{HorizonDays: 7, SeasonalPeriod: 7, Confidence: 0.80}, nil)
}

func TestForecastConsumerHorizonAndOrdering(t *testing.T) {
	d := syntheticDataset("plant", 28, 100, 2, 30)

	fc, err := newForecaster().ForecastConsumer(context.Background(), d, "plant")
	require.NoError(t, err)

	require.Len(t, fc.Points, 7)
	lastObserved := seriesStart.AddDate(0, 0, 27)
	for i, p := range fc.Points {
		assert.Equal(t, lastObserved.AddDate(0, 0, i+1), p.Date)
		assert.LessOrEqual(t, p.Lower, p.Forecast)
		assert.GreaterOrEqual(t, p.Upper, p.Forecast)
		assert.Equal(t, "plant", p.Consumer)
	}
}

func TestForecastRecoversTrendAndSeasonality(t *testing.T) {
	// Noise-free synthetic series: the fitted model should reproduce the
	// generating process almost exactly.
	d := syntheticDataset("plant", 28, 100, 2, 30)

	fc, err := newForecaster().ForecastConsumer(context.Background(), d, "plant")
	require.NoError(t, err)

	for _, p := range fc.Points {
		day := int(p.Date.Sub(seriesStart).Hours() / 24)
		want := 100 + 2*float64(day)
		if wd := p.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			want += 30
		}
		assert.InDelta(t, want, p.Forecast, 2.0, "forecast for %s", p.Date)
	}
}

func TestForecastTrendComponentIsLinear(t *testing.T) {
	d := syntheticDataset("plant", 28, 100, 2, 0)

	fc, err := newForecaster().ForecastConsumer(context.Background(), d, "plant")
	require.NoError(t, err)

	// Consecutive trend values differ by the daily slope.
	for i := 1; i < len(fc.Points); i++ {
		delta := fc.Points[i].Trend - fc.Points[i-1].Trend
		assert.InDelta(t, 2.0, delta, 0.1)
	}
}

func TestForecastInsufficientHistory(t *testing.T) {
	d := syntheticDataset("plant", 10, 100, 0, 0) // < 14 days

	_, err := newForecaster().ForecastConsumer(context.Background(), d, "plant")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrInsufficientHistory)
}

func TestForecastUnknownConsumer(t *testing.T) {
	d := syntheticDataset("plant", 20, 100, 0, 0)

	_, err := newForecaster().ForecastConsumer(context.Background(), d, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrConsumerNotFound)
}

func TestForecastAllRecordsSkips(t *testing.T) {
	long := syntheticDataset("long", 28, 100, 1, 10)
	short := syntheticDataset("short", 5, 50, 0, 0)

	merged := &domain.Dataset{
		Readings:  append(long.Readings, short.Readings...),
		Consumers: []string{"long", "short"},
		Start:     long.Start,
		End:       long.End,
	}

	set, err := newForecaster().ForecastAll(context.Background(), merged)
	require.NoError(t, err)

	require.Len(t, set.Forecasts, 1)
	assert.Equal(t, "long", set.Forecasts[0].Consumer)
	require.Len(t, set.Skipped, 1)
	assert.Equal(t, "short", set.Skipped[0].Consumer)
	assert.Contains(t, set.Skipped[0].Reason, "history")

	assert.NotNil(t, set.ForConsumer("long"))
	assert.Nil(t, set.ForConsumer("short"))
}

func TestForecastNeverNegative(t *testing.T) {
	// Steeply declining series pushes the projection below zero.
	d := syntheticDataset("fading", 28, 100, -5, 0)

	fc, err := newForecaster().ForecastConsumer(context.Background(), d, "fading")
	require.NoError(t, err)

	for _, p := range fc.Points {
		assert.GreaterOrEqual(t, p.Forecast, 0.0)
		assert.GreaterOrEqual(t, p.Lower, 0.0)
	}
}

func TestZValue(t *testing.T) {
	assert.InDelta(t, 1.2816, zValue(0.80), 1e-3)
	assert.InDelta(t, 1.6449, zValue(0.90), 1e-3)
	assert.InDelta(t, 1.9600, zValue(0.95), 1e-3)
	assert.Equal(t, 0.0, zValue(0))
	assert.Equal(t, 0.0, zValue(1))
}

func TestZValueMonotonic(t *testing.T) {
	prev := 0.0
	for _, c := range []float64{0.5, 0.8, 0.9, 0.95, 0.99} {
		z := zValue(c)
		assert.Greater(t, z, prev)
		prev = z
	}
}

func TestForecastEmptyDataset(t *testing.T) {
	_, err := newForecaster().ForecastAll(context.Background(), &domain.Dataset{})
	require.Error(t, err)
	assert.False(t, math.IsNaN(zValue(0.8)))
}
