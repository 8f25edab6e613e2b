package pipeline

import (
	"context"
	"sync"
	"time"
)

// Stage identifiers.
const (
	StageIDIngest   = "ingest"
	StageIDCleanse  = "cleanse"
	StageIDAnalyze  = "analyze"
	StageIDForecast = "forecast"
	StageIDExport   = "export"
)

// Stage names shown on the dashboard.
const (
	StageNameIngest   = "Data Ingestion"
	StageNameCleanse  = "Data Cleansing"
	StageNameAnalyze  = "Exploratory Analysis"
	StageNameForecast = "Demand Forecast"
	StageNameExport   = "Report Export"
)

// Stage is a single step of the batch pipeline. Stages run sequentially
// and communicate through the shared RunState.
type Stage interface {
	// ID returns the unique identifier for this stage
	ID() string

	// Name returns the human-readable name for this stage
	Name() string

	// Execute runs the stage against the shared run state
	Execute(ctx context.Context, state *RunState) error
}

// StageStatus represents the current status of a stage.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// StageState represents the runtime state of a stage.
type StageState struct {
	mu        sync.RWMutex
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    StageStatus            `json:"status"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Progress  float64                `json:"progress"`
	Message   string                 `json:"message"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewStageState creates a stage state with default values.
func NewStageState(id, name string) *StageState {
	return &StageState{
		ID:       id,
		Name:     name,
		Status:   StageStatusPending,
		Metadata: make(map[string]interface{}),
	}
}

// Start marks the stage as active and sets the start time.
func (s *StageState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StageStatusActive
	s.Progress = 0
}

// Complete marks the stage as completed and sets the end time.
func (s *StageState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusCompleted
	s.Progress = 100
}

// Fail marks the stage as failed with the given error.
func (s *StageState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusFailed
	if err != nil {
		s.Error = err.Error()
	}
}

// Skip marks the stage as skipped with the given reason.
func (s *StageState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusSkipped
	s.Message = reason
}

// UpdateProgress updates the stage progress and message.
func (s *StageState) UpdateProgress(progress float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Progress = progress
	s.Message = message
}

// SetMetadata records a stage-level fact surfaced in run snapshots.
func (s *StageState) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metadata[key] = value
}

// Duration returns the duration of the stage execution.
func (s *StageState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

func (s *StageState) snapshot() StageSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StageSnapshot{
		ID:       s.ID,
		Name:     s.Name,
		Status:   s.Status,
		Progress: s.Progress,
		Message:  s.Message,
		Error:    s.Error,
	}
	if s.StartTime != nil {
		t := *s.StartTime
		snap.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		snap.EndTime = &t
	}
	if len(s.Metadata) > 0 {
		snap.Metadata = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			snap.Metadata[k] = v
		}
	}
	return snap
}
