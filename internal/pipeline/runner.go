package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apierrors "energylens/internal/errors"
	"energylens/internal/infrastructure"
)

// Broadcaster publishes run progress to dashboard clients. The websocket
// hub satisfies this; tests substitute a recorder.
type Broadcaster interface {
	BroadcastRunStatus(runID, status, message string)
	BroadcastStageProgress(runID, stage, status string, progress int, message string)
	BroadcastRunComplete(runID string, success bool, message string)
	BroadcastError(code, message, stage string)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastRunStatus(string, string, string)            {}
func (noopBroadcaster) BroadcastStageProgress(string, string, string, int, string) {}
func (noopBroadcaster) BroadcastRunComplete(string, bool, string)            {}
func (noopBroadcaster) BroadcastError(string, string, string)                {}

// Runner executes the pipeline stages sequentially and keeps run history
// in memory. Only one run may be active at a time.
type Runner struct {
	stages  []Stage
	hub     Broadcaster
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics

	mu     sync.RWMutex
	active bool
	runs   map[string]*RunState
	order  []string

	onComplete func(*RunState)
}

// NewRunner creates a runner over the given stages. hub, tracer and
// metrics may be nil.
func NewRunner(stages []Stage, hub Broadcaster, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if hub == nil {
		hub = noopBroadcaster{}
	}
	return &Runner{
		stages: stages,
		hub:    hub,
		logger: logger.With(slog.String("component", "pipeline")),
		runs:   make(map[string]*RunState),
	}
}

// WithTracer attaches an OpenTelemetry tracer for per-stage spans.
func (r *Runner) WithTracer(tracer trace.Tracer) *Runner {
	r.tracer = tracer
	return r
}

// WithMetrics attaches the application metrics instruments.
func (r *Runner) WithMetrics(m *infrastructure.PipelineMetrics) *Runner {
	r.metrics = m
	return r
}

// OnComplete registers a callback invoked after every successful run,
// before Run returns. Used to hand the fresh dataset to the services.
func (r *Runner) OnComplete(fn func(*RunState)) {
	r.onComplete = fn
}

// Active reports whether a run is currently executing.
func (r *Runner) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Status returns the snapshot of a run by ID.
func (r *Runner) Status(runID string) (RunSnapshot, error) {
	r.mu.RLock()
	state, ok := r.runs[runID]
	r.mu.RUnlock()
	if !ok {
		return RunSnapshot{}, apierrors.ErrRunNotFound
	}
	return state.Snapshot(), nil
}

// Runs returns snapshots of all runs, oldest first.
func (r *Runner) Runs() []RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snaps := make([]RunSnapshot, 0, len(r.order))
	for _, id := range r.order {
		snaps = append(snaps, r.runs[id].Snapshot())
	}
	return snaps
}

// Latest returns the most recent run snapshot, if any.
func (r *Runner) Latest() (RunSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return RunSnapshot{}, false
	}
	return r.runs[r.order[len(r.order)-1]].Snapshot(), true
}

// Run executes all stages in order and returns the finished run state.
// A second concurrent call fails with ErrPipelineAlreadyActive.
func (r *Runner) Run(ctx context.Context) (*RunState, error) {
	state, err := r.reserve()
	if err != nil {
		return nil, err
	}
	return state, r.execute(ctx, state)
}

// Start reserves a run and executes it in the background, returning the
// run ID immediately. Progress is observable via Status and the hub.
func (r *Runner) Start(ctx context.Context) (string, error) {
	state, err := r.reserve()
	if err != nil {
		return "", err
	}

	go func() {
		if err := r.execute(ctx, state); err != nil {
			r.logger.Error("background pipeline run failed",
				slog.String("run_id", state.ID),
				slog.String("error", err.Error()))
		}
	}()
	return state.ID, nil
}

func (r *Runner) reserve() (*RunState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return nil, apierrors.ErrPipelineAlreadyActive
	}
	r.active = true

	state := NewRunState(uuid.New().String(), r.stages)
	r.runs[state.ID] = state
	r.order = append(r.order, state.ID)
	return state, nil
}

func (r *Runner) execute(ctx context.Context, state *RunState) error {
	defer func() {
		r.mu.Lock()
		r.active = false
		r.mu.Unlock()
	}()

	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "pipeline.run",
			trace.WithAttributes(attribute.String("run.id", state.ID)))
		defer span.End()
	}

	state.Start()
	r.hub.BroadcastRunStatus(state.ID, string(RunStatusRunning), "pipeline started")
	r.logger.InfoContext(ctx, "pipeline run started",
		slog.String("run_id", state.ID),
		slog.Int("stages", len(r.stages)))

	for i, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			r.cancelFrom(ctx, state, i)
			return err
		}

		if err := r.runStage(ctx, state, stage); err != nil {
			r.failFrom(ctx, state, i+1, stage, err)
			return err
		}
	}

	state.Complete()
	r.recordRunMetrics(ctx, state, "completed")

	r.logger.InfoContext(ctx, "pipeline run completed",
		slog.String("run_id", state.ID),
		slog.Duration("duration", state.Duration()))

	if r.onComplete != nil {
		r.onComplete(state)
	}

	r.hub.BroadcastRunComplete(state.ID, true, "pipeline completed")
	return nil
}

func (r *Runner) runStage(ctx context.Context, state *RunState, stage Stage) error {
	stageState := state.Stage(stage.ID())
	stageState.Start()
	r.hub.BroadcastStageProgress(state.ID, stage.ID(), string(StageStatusActive), 0, stage.Name())

	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "pipeline.stage."+stage.ID())
		defer span.End()
	}

	r.logger.InfoContext(ctx, "stage started",
		slog.String("run_id", state.ID),
		slog.String("stage", stage.ID()))

	err := stage.Execute(ctx, state)

	if r.metrics != nil {
		r.metrics.StageDuration.Record(ctx, stageState.Duration().Seconds(),
			metric.WithAttributes(attribute.String("stage", stage.ID())))
	}

	if err != nil {
		stageState.Fail(err)
		r.logger.ErrorContext(ctx, "stage failed",
			slog.String("run_id", state.ID),
			slog.String("stage", stage.ID()),
			slog.String("error", err.Error()))
		return err
	}

	stageState.Complete()
	r.hub.BroadcastStageProgress(state.ID, stage.ID(), string(StageStatusCompleted), 100, stage.Name())
	r.logger.InfoContext(ctx, "stage completed",
		slog.String("run_id", state.ID),
		slog.String("stage", stage.ID()),
		slog.Duration("duration", stageState.Duration()))
	return nil
}

func (r *Runner) failFrom(ctx context.Context, state *RunState, next int, failed Stage, err error) {
	for _, stage := range r.stages[next:] {
		state.Stage(stage.ID()).Skip("previous stage failed")
	}

	state.Fail(err)
	r.recordRunMetrics(ctx, state, "failed")

	r.hub.BroadcastError("PIPELINE_FAILED", err.Error(), failed.ID())
	r.hub.BroadcastRunComplete(state.ID, false, err.Error())
}

func (r *Runner) cancelFrom(ctx context.Context, state *RunState, from int) {
	for _, stage := range r.stages[from:] {
		state.Stage(stage.ID()).Skip("run cancelled")
	}

	state.Cancel()
	r.recordRunMetrics(ctx, state, "cancelled")

	r.logger.WarnContext(ctx, "pipeline run cancelled", slog.String("run_id", state.ID))
	r.hub.BroadcastRunComplete(state.ID, false, "run cancelled")
}

func (r *Runner) recordRunMetrics(ctx context.Context, state *RunState, status string) {
	if r.metrics == nil {
		return
	}

	r.metrics.PipelineRunsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
	r.metrics.PipelineRunDuration.Record(ctx, state.Duration().Seconds())

	if state.Raw != nil {
		r.metrics.ReadingsIngested.Add(ctx, int64(len(state.Raw)))
	}
	if state.CleanseReport != nil {
		r.metrics.OutliersRemoved.Add(ctx, int64(state.CleanseReport.Removed()))
	}
	if state.Forecasts != nil {
		r.metrics.ForecastsGenerated.Add(ctx, int64(len(state.Forecasts.Forecasts)))
	}
}
