package services

import (
	"sync"

	apierrors "energylens/internal/errors"
	"energylens/pkg/contracts/domain"
)

// Store holds the latest pipeline outputs in memory. The dashboard reads
// from it; a completed pipeline run replaces its contents atomically.
type Store struct {
	mu        sync.RWMutex
	dataset   *domain.Dataset
	summary   *domain.DatasetSummary
	forecasts *domain.ForecastSet
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Update replaces the stored dataset, summary and forecasts.
func (s *Store) Update(dataset *domain.Dataset, summary *domain.DatasetSummary, forecasts *domain.ForecastSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = dataset
	s.summary = summary
	s.forecasts = forecasts
}

// Loaded reports whether a dataset is available.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset != nil
}

// Dataset returns the stored dataset or ErrDatasetNotLoaded.
func (s *Store) Dataset() (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, apierrors.ErrDatasetNotLoaded
	}
	return s.dataset, nil
}

// Summary returns the stored dataset summary or ErrDatasetNotLoaded.
func (s *Store) Summary() (*domain.DatasetSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil {
		return nil, apierrors.ErrDatasetNotLoaded
	}
	return s.summary, nil
}

// Forecasts returns the stored forecast set or ErrDatasetNotLoaded.
func (s *Store) Forecasts() (*domain.ForecastSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.forecasts == nil {
		return nil, apierrors.ErrDatasetNotLoaded
	}
	return s.forecasts, nil
}
