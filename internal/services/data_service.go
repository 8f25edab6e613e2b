package services

import (
	"context"
	"fmt"
	"log/slog"

	"energylens/internal/analytics"
	apierrors "energylens/internal/errors"
	"energylens/internal/infrastructure"
	"energylens/pkg/contracts/domain"
)

// DataService serves the aggregations behind the dashboard charts. All
// aggregations accept an optional consumer filter; an empty filter means
// every consumer in the dataset.
type DataService struct {
	store  *Store
	logger *slog.Logger
}

// NewDataService creates a DataService backed by the given store.
func NewDataService(store *Store, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &DataService{
		store:  store,
		logger: logger.With(slog.String("component", "data-service")),
	}
}

// Summary returns the dataset metadata shown in the dashboard header.
func (s *DataService) Summary(ctx context.Context) (*domain.DatasetSummary, error) {
	return s.store.Summary()
}

// Consumers returns the sorted consumer identifiers in the dataset.
func (s *DataService) Consumers(ctx context.Context) ([]string, error) {
	dataset, err := s.store.Dataset()
	if err != nil {
		return nil, err
	}
	return dataset.Consumers, nil
}

// DailyTrend returns total daily consumption for the selected consumers.
func (s *DataService) DailyTrend(ctx context.Context, consumers []string) ([]domain.DailyPoint, error) {
	dataset, err := s.datasetFor(consumers)
	if err != nil {
		return nil, err
	}
	return analytics.DailyTotals(dataset, consumers), nil
}

// AverageByConsumer returns mean consumption per consumer.
func (s *DataService) AverageByConsumer(ctx context.Context, consumers []string) ([]domain.ConsumerAverage, error) {
	dataset, err := s.datasetFor(consumers)
	if err != nil {
		return nil, err
	}
	return analytics.Averages(dataset, consumers), nil
}

// HourlyProfile returns mean consumption per hour of day.
func (s *DataService) HourlyProfile(ctx context.Context, consumers []string) ([]domain.HourlyPoint, error) {
	dataset, err := s.datasetFor(consumers)
	if err != nil {
		return nil, err
	}
	return analytics.HourlyProfile(dataset, consumers), nil
}

// WeekdayProfile returns mean consumption per weekday, Monday first.
func (s *DataService) WeekdayProfile(ctx context.Context, consumers []string) ([]domain.WeekdayPoint, error) {
	dataset, err := s.datasetFor(consumers)
	if err != nil {
		return nil, err
	}
	return analytics.WeekdayProfile(dataset, consumers), nil
}

// Distributions returns per-consumer distribution statistics for the
// boxplot view.
func (s *DataService) Distributions(ctx context.Context, consumers []string) ([]domain.Distribution, error) {
	dataset, err := s.datasetFor(consumers)
	if err != nil {
		return nil, err
	}
	return analytics.Distributions(dataset, consumers), nil
}

// datasetFor fetches the dataset and rejects filters naming unknown
// consumers, so typos surface as 404s instead of empty charts.
func (s *DataService) datasetFor(consumers []string) (*domain.Dataset, error) {
	dataset, err := s.store.Dataset()
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(dataset.Consumers))
	for _, c := range dataset.Consumers {
		known[c] = true
	}
	for _, c := range consumers {
		if !known[c] {
			return nil, fmt.Errorf("consumer %q: %w", c, apierrors.ErrConsumerNotFound)
		}
	}
	return dataset, nil
}
