package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"energylens/internal/analytics"
	"energylens/internal/config"
	"energylens/internal/infrastructure"
	"energylens/internal/pipeline"
	"energylens/internal/services"
	transporthttp "energylens/internal/transport/http"
	"energylens/internal/websocket"
)

// Application wires configuration, observability, the pipeline and the
// HTTP surface together.
type Application struct {
	Config *config.Config
	Paths  *config.Paths
	Logger *slog.Logger

	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.PipelineMetrics

	Hub    *websocket.Hub
	Runner *pipeline.Runner
	Store  *services.Store

	DataService     *services.DataService
	ForecastService *services.ForecastService
	PipelineService *services.PipelineService
	HealthService   *services.HealthService

	Server *http.Server
	cron   *cron.Cron
}

// New builds the application from configuration. Logging and telemetry
// are initialized here; nothing starts listening until Run.
func New(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	paths, err := config.DefaultPaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	websocket.Configure(cfg.WebSocket)
	hub := websocket.NewHub(logger)
	store := services.NewStore()

	runner := pipeline.NewRunner(pipeline.NewStages(cfg, paths, logger, false), hub, logger).
		WithTracer(providers.Tracer).
		WithMetrics(metrics)

	runner.OnComplete(func(state *pipeline.RunState) {
		interpolated, removed := 0, 0
		if state.CleanseReport != nil {
			interpolated = state.CleanseReport.Interpolated
			removed = state.CleanseReport.Removed()
		}
		summary := state.Summary
		if summary == nil && state.Dataset != nil {
			s := analytics.Summarize(state.Dataset, interpolated, removed)
			summary = &s
		}
		store.Update(state.Dataset, summary, state.Forecasts)
		hub.BroadcastRefresh("pipeline", []string{"summary", "charts", "forecast"})
	})

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		Hub:           hub,
		Runner:        runner,
		Store:         store,
	}

	app.DataService = services.NewDataService(store, logger)
	app.ForecastService = services.NewForecastService(store, logger)
	app.PipelineService = services.NewPipelineService(runner, logger)
	app.HealthService = services.NewHealthService(store, app.PipelineService, infrastructure.ServiceVersion)

	router := transporthttp.NewRouter(transporthttp.RouterConfig{
		DataService:     app.DataService,
		ForecastService: app.ForecastService,
		PipelineService: app.PipelineService,
		HealthService:   app.HealthService,
		Hub:             hub,
		Paths:           paths,
		Logger:          logger,
		Metrics:         metrics,
		MetricsHandler:  providers.PrometheusHTTP,
		RateLimit:       cfg.Server.RateLimitRPS,
		RateBurst:       cfg.Server.RateLimitBurst,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
	})

	app.Server = &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if expr := cfg.Scheduler.RefreshCron; expr != "" {
		app.cron = cron.New()
		if _, err := app.cron.AddFunc(expr, app.scheduledRun); err != nil {
			return nil, fmt.Errorf("invalid refresh cron %q: %w", expr, err)
		}
	}

	return app, nil
}

// scheduledRun triggers a pipeline refresh from the cron scheduler. An
// already active run is not an error, the next tick picks it up.
func (a *Application) scheduledRun() {
	ctx := context.Background()
	a.Logger.Info("scheduled pipeline refresh")

	if _, err := a.Runner.Run(ctx); err != nil {
		a.Logger.Error("scheduled pipeline refresh failed",
			slog.String("error", err.Error()))
	}
}

// RunPipelineOnce executes a single synchronous pipeline run. Used by
// the one-shot batch command and at server startup.
func (a *Application) RunPipelineOnce(ctx context.Context) (*pipeline.RunState, error) {
	return a.Runner.Run(ctx)
}

// Run starts the hub, scheduler and HTTP server, then blocks until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	a.Hub.Start()
	if a.cron != nil {
		a.cron.Start()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening",
			slog.String("addr", a.Server.Addr),
			slog.String("dashboard", "http://localhost"+a.Server.Addr))

		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown stops the server, scheduler and telemetry gracefully.
func (a *Application) Shutdown() error {
	a.Logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error

	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	if a.cron != nil {
		stopCtx := a.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			errs = append(errs, errors.New("cron jobs did not stop in time"))
		}
	}

	a.Hub.Stop()

	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}

	return errors.Join(errs...)
}
