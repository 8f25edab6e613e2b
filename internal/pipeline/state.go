package pipeline

import (
	"sync"
	"time"

	"energylens/internal/cleanse"
	"energylens/pkg/contracts/domain"
)

// RunStatus represents the overall run status.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunState is the shared state of one pipeline execution. Stages read the
// artifacts produced by earlier stages and attach their own.
type RunState struct {
	mu sync.RWMutex

	ID        string
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time
	Err       error

	stages map[string]*StageState
	order  []string

	// Artifacts handed from stage to stage.
	Raw           []domain.Reading
	Dataset       *domain.Dataset
	CleanseReport *cleanse.Report
	Summary       *domain.DatasetSummary
	Forecasts     *domain.ForecastSet
	Reports       []string
}

// NewRunState creates a pending run with stage slots for the given stages.
func NewRunState(id string, stages []Stage) *RunState {
	state := &RunState{
		ID:        id,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		stages:    make(map[string]*StageState, len(stages)),
		order:     make([]string, 0, len(stages)),
	}
	for _, stage := range stages {
		state.stages[stage.ID()] = NewStageState(stage.ID(), stage.Name())
		state.order = append(state.order, stage.ID())
	}
	return state
}

// Start marks the run as running.
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunStatusRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed.
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
}

// Fail marks the run as failed.
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Err = err
}

// Cancel marks the run as cancelled.
func (r *RunState) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCancelled
}

// Stage returns the state of a specific stage.
func (r *RunState) Stage(stageID string) *StageState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stages[stageID]
}

// CurrentStatus returns the run status under lock.
func (r *RunState) CurrentStatus() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// Duration returns how long the run took, or has been running so far.
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// StageSnapshot is the JSON view of a single stage.
type StageSnapshot struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    StageStatus            `json:"status"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Progress  float64                `json:"progress"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// RunSnapshot is the JSON view of a run, served by the status API.
type RunSnapshot struct {
	ID        string          `json:"id"`
	Status    RunStatus       `json:"status"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Stages    []StageSnapshot `json:"stages"`
	Reports   []string        `json:"reports,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Snapshot returns a consistent copy of the run for serialization.
func (r *RunState) Snapshot() RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := RunSnapshot{
		ID:        r.ID,
		Status:    r.Status,
		StartTime: r.StartTime,
		Reports:   append([]string(nil), r.Reports...),
		Stages:    make([]StageSnapshot, 0, len(r.order)),
	}
	if r.EndTime != nil {
		t := *r.EndTime
		snap.EndTime = &t
	}
	if r.Err != nil {
		snap.Error = r.Err.Error()
	}
	for _, id := range r.order {
		snap.Stages = append(snap.Stages, r.stages[id].snapshot())
	}
	return snap
}
