package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"energylens/internal/config"
	apierrors "energylens/internal/errors"
	"energylens/internal/infrastructure"
	"energylens/internal/middleware"
	"energylens/internal/services"
	"energylens/internal/websocket"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	DataService     *services.DataService
	ForecastService *services.ForecastService
	PipelineService *services.PipelineService
	HealthService   *services.HealthService

	Hub     *websocket.Hub
	Paths   *config.Paths
	Logger  *slog.Logger
	Metrics *infrastructure.PipelineMetrics

	// MetricsHandler serves the Prometheus scrape endpoint. Optional.
	MetricsHandler http.Handler

	// RateLimit is requests per second across the whole API.
	RateLimit float64
	RateBurst int

	// AllowedOrigins for CORS. Empty means any origin.
	AllowedOrigins []string
}

// NewRouter assembles the full HTTP surface: dashboard, JSON API,
// websocket and metrics.
func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	errorHandler := apierrors.NewErrorHandler(logger, false)

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 50
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 100
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Compress(5))

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))

		r.Mount("/data", NewDataHandler(cfg.DataService, cfg.Paths, logger, errorHandler).Routes())
		r.Mount("/forecast", NewForecastHandler(cfg.ForecastService, logger, errorHandler).Routes())
		r.Mount("/pipeline", NewPipelineHandler(cfg.PipelineService, logger, errorHandler).Routes())
		r.Mount("/health", NewHealthHandler(cfg.HealthService).Routes())
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
			websocket.ServeWS(cfg.Hub, w, req, logger)
		})
	}

	if cfg.Paths != nil {
		r.NotFound(NewHTMLHandler(cfg.Paths.WebDir).ServeHTTP)
	}

	return r
}
