package services

import (
	"context"
	"log/slog"

	"energylens/internal/infrastructure"
	"energylens/internal/pipeline"
)

// PipelineService exposes run control to the HTTP layer.
type PipelineService struct {
	runner *pipeline.Runner
	logger *slog.Logger
}

// NewPipelineService creates a PipelineService over the given runner.
func NewPipelineService(runner *pipeline.Runner, logger *slog.Logger) *PipelineService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &PipelineService{
		runner: runner,
		logger: logger.With(slog.String("component", "pipeline-service")),
	}
}

// Trigger starts a background pipeline run and returns its ID. The run
// outlives the HTTP request that triggered it.
func (s *PipelineService) Trigger(ctx context.Context) (string, error) {
	runID, err := s.runner.Start(context.WithoutCancel(ctx))
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "pipeline run triggered", slog.String("run_id", runID))
	return runID, nil
}

// Status returns the snapshot of a run by ID.
func (s *PipelineService) Status(ctx context.Context, runID string) (pipeline.RunSnapshot, error) {
	return s.runner.Status(runID)
}

// Runs returns all run snapshots, oldest first.
func (s *PipelineService) Runs(ctx context.Context) []pipeline.RunSnapshot {
	return s.runner.Runs()
}

// Latest returns the most recent run snapshot.
func (s *PipelineService) Latest(ctx context.Context) (pipeline.RunSnapshot, bool) {
	return s.runner.Latest()
}

// Active reports whether a run is currently executing.
func (s *PipelineService) Active() bool {
	return s.runner.Active()
}
