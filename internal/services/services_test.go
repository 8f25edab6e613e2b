package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "energylens/internal/errors"
	"energylens/internal/pipeline"
	"energylens/pkg/contracts/domain"
)

func fixtureDataset() *domain.Dataset {
	base := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	var readings []domain.Reading
	for _, consumer := range []string{"office", "warehouse"} {
		for hour := 0; hour < 24; hour++ {
			readings = append(readings, domain.Reading{
				Consumer:    consumer,
				Timestamp:   base.Add(time.Duration(hour) * time.Hour),
				Consumption: 10,
			})
		}
	}
	return &domain.Dataset{
		Readings:  readings,
		Consumers: []string{"office", "warehouse"},
		Start:     base,
		End:       base.Add(23 * time.Hour),
	}
}

func fixtureForecasts() *domain.ForecastSet {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	return &domain.ForecastSet{
		Generated: time.Now(),
		Horizon:   7,
		Forecasts: []domain.ConsumerForecast{
			{
				Consumer: "office",
				Horizon:  7,
				Points: []domain.ForecastPoint{
					{Consumer: "office", Date: date, Forecast: 240, Lower: 220, Upper: 260, Trend: 240},
				},
			},
		},
		Skipped: []domain.ForecastSkip{
			{Consumer: "warehouse", Reason: "needs at least 14 days of history"},
		},
	}
}

func loadedStore() *Store {
	store := NewStore()
	summary := domain.DatasetSummary{
		Consumers:     []string{"office", "warehouse"},
		TotalReadings: 48,
	}
	store.Update(fixtureDataset(), &summary, fixtureForecasts())
	return store
}

func TestStoreEmpty(t *testing.T) {
	store := NewStore()
	assert.False(t, store.Loaded())

	_, err := store.Dataset()
	assert.ErrorIs(t, err, apierrors.ErrDatasetNotLoaded)
	_, err = store.Summary()
	assert.ErrorIs(t, err, apierrors.ErrDatasetNotLoaded)
	_, err = store.Forecasts()
	assert.ErrorIs(t, err, apierrors.ErrDatasetNotLoaded)
}

func TestDataServiceNotLoaded(t *testing.T) {
	svc := NewDataService(NewStore(), nil)

	_, err := svc.Consumers(context.Background())
	assert.ErrorIs(t, err, apierrors.ErrDatasetNotLoaded)

	_, err = svc.DailyTrend(context.Background(), nil)
	assert.ErrorIs(t, err, apierrors.ErrDatasetNotLoaded)
}

func TestDataServiceAggregations(t *testing.T) {
	svc := NewDataService(loadedStore(), nil)
	ctx := context.Background()

	consumers, err := svc.Consumers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"office", "warehouse"}, consumers)

	daily, err := svc.DailyTrend(ctx, nil)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, "office", daily[0].Consumer)
	assert.InDelta(t, 240.0, daily[0].Total, 1e-9)

	daily, err = svc.DailyTrend(ctx, []string{"office"})
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.InDelta(t, 240.0, daily[0].Total, 1e-9)

	averages, err := svc.AverageByConsumer(ctx, nil)
	require.NoError(t, err)
	require.Len(t, averages, 2)
	assert.InDelta(t, 10.0, averages[0].Average, 1e-9)

	hourly, err := svc.HourlyProfile(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, hourly, 48)

	weekday, err := svc.WeekdayProfile(ctx, nil)
	require.NoError(t, err)
	require.NotEmpty(t, weekday)
	assert.Equal(t, time.Monday, weekday[0].Weekday)

	dists, err := svc.Distributions(ctx, []string{"warehouse"})
	require.NoError(t, err)
	require.Len(t, dists, 1)
	assert.Equal(t, "warehouse", dists[0].Consumer)
}

func TestDataServiceUnknownConsumer(t *testing.T) {
	svc := NewDataService(loadedStore(), nil)

	_, err := svc.DailyTrend(context.Background(), []string{"factory"})
	assert.ErrorIs(t, err, apierrors.ErrConsumerNotFound)
}

func TestForecastServiceForConsumer(t *testing.T) {
	svc := NewForecastService(loadedStore(), nil)
	ctx := context.Background()

	fc, err := svc.ForConsumer(ctx, "office")
	require.NoError(t, err)
	assert.Equal(t, "office", fc.Consumer)
	require.Len(t, fc.Points, 1)

	_, err = svc.ForConsumer(ctx, "warehouse")
	assert.ErrorIs(t, err, apierrors.ErrInsufficientHistory)

	_, err = svc.ForConsumer(ctx, "factory")
	assert.ErrorIs(t, err, apierrors.ErrConsumerNotFound)
}

type instantStage struct{}

func (instantStage) ID() string   { return "instant" }
func (instantStage) Name() string { return "Instant" }
func (instantStage) Execute(ctx context.Context, state *pipeline.RunState) error {
	return nil
}

func TestPipelineServiceTrigger(t *testing.T) {
	runner := pipeline.NewRunner([]pipeline.Stage{instantStage{}}, nil, nil)
	svc := NewPipelineService(runner, nil)
	ctx := context.Background()

	runID, err := svc.Trigger(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := svc.Status(ctx, runID)
		require.NoError(t, err)
		if snap.Status == pipeline.RunStatusCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap, err := svc.Status(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.RunStatusCompleted, snap.Status)

	latest, ok := svc.Latest(ctx)
	require.True(t, ok)
	assert.Equal(t, runID, latest.ID)
	assert.Len(t, svc.Runs(ctx), 1)

	_, err = svc.Status(ctx, "nope")
	assert.ErrorIs(t, err, apierrors.ErrRunNotFound)
}

func TestHealthService(t *testing.T) {
	store := NewStore()
	runner := pipeline.NewRunner([]pipeline.Stage{instantStage{}}, nil, nil)
	svc := NewHealthService(store, NewPipelineService(runner, nil), "1.0.0")

	health := svc.Health(context.Background())
	assert.Equal(t, "degraded", health.Status)
	assert.False(t, health.DatasetLoaded)

	store.Update(fixtureDataset(), &domain.DatasetSummary{}, nil)

	health = svc.Health(context.Background())
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.DatasetLoaded)
	assert.Equal(t, "1.0.0", health.Version)
}
