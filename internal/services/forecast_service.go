package services

import (
	"context"
	"fmt"
	"log/slog"

	apierrors "energylens/internal/errors"
	"energylens/internal/infrastructure"
	"energylens/pkg/contracts/domain"
)

// ForecastService serves the forecasts produced by the last pipeline run.
type ForecastService struct {
	store  *Store
	logger *slog.Logger
}

// NewForecastService creates a ForecastService backed by the given store.
func NewForecastService(store *Store, logger *slog.Logger) *ForecastService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ForecastService{
		store:  store,
		logger: logger.With(slog.String("component", "forecast-service")),
	}
}

// All returns the full forecast set.
func (s *ForecastService) All(ctx context.Context) (*domain.ForecastSet, error) {
	return s.store.Forecasts()
}

// ForConsumer returns the forecast for a single consumer. Consumers that
// were skipped for lack of history map to ErrInsufficientHistory.
func (s *ForecastService) ForConsumer(ctx context.Context, consumer string) (*domain.ConsumerForecast, error) {
	set, err := s.store.Forecasts()
	if err != nil {
		return nil, err
	}

	if fc := set.ForConsumer(consumer); fc != nil {
		return fc, nil
	}

	for _, skip := range set.Skipped {
		if skip.Consumer == consumer {
			return nil, fmt.Errorf("consumer %q: %s: %w", consumer, skip.Reason, apierrors.ErrInsufficientHistory)
		}
	}
	return nil, fmt.Errorf("consumer %q: %w", consumer, apierrors.ErrConsumerNotFound)
}
