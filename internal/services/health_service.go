package services

import (
	"context"
	"time"
)

// HealthStatus is the payload of the health endpoint.
type HealthStatus struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	Uptime        string    `json:"uptime"`
	DatasetLoaded bool      `json:"dataset_loaded"`
	PipelineBusy  bool      `json:"pipeline_busy"`
	CheckedAt     time.Time `json:"checked_at"`
}

// HealthService reports readiness of the dashboard backend.
type HealthService struct {
	store    *Store
	pipeline *PipelineService
	version  string
	started  time.Time
}

// NewHealthService creates a HealthService.
func NewHealthService(store *Store, pipeline *PipelineService, version string) *HealthService {
	return &HealthService{
		store:    store,
		pipeline: pipeline,
		version:  version,
		started:  time.Now(),
	}
}

// Health returns the current health status. The service is degraded until
// a pipeline run has loaded a dataset.
func (s *HealthService) Health(ctx context.Context) HealthStatus {
	status := "ok"
	loaded := s.store.Loaded()
	if !loaded {
		status = "degraded"
	}

	return HealthStatus{
		Status:        status,
		Version:       s.version,
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		DatasetLoaded: loaded,
		PipelineBusy:  s.pipeline.Active(),
		CheckedAt:     time.Now(),
	}
}
