package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "energylens/internal/errors"
	"energylens/internal/services"
)

// ForecastHandler serves the 7-day demand forecasts.
type ForecastHandler struct {
	service      *services.ForecastService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewForecastHandler creates a forecast handler.
func NewForecastHandler(service *services.ForecastService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ForecastHandler {
	return &ForecastHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "forecast_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the forecast routes.
func (h *ForecastHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetAll)
	r.Route("/{consumer}", func(r chi.Router) {
		r.Use(h.ConsumerCtx)
		r.Get("/", h.GetForConsumer)
	})

	return r
}

// ConsumerCtx validates the consumer URL parameter.
func (h *ForecastHandler) ConsumerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		consumer := strings.TrimSpace(chi.URLParam(r, "consumer"))
		if consumer == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("consumer", "Consumer name is required"))
			return
		}
		if len(consumer) > 128 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("consumer", "Consumer name too long"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetAll handles GET /api/forecast.
func (h *ForecastHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.All(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, set)
}

// GetForConsumer handles GET /api/forecast/{consumer}.
func (h *ForecastHandler) GetForConsumer(w http.ResponseWriter, r *http.Request) {
	consumer := chi.URLParam(r, "consumer")

	fc, err := h.service.ForConsumer(r.Context(), consumer)
	if err != nil {
		h.logger.WarnContext(r.Context(), "forecast lookup failed",
			slog.String("consumer", consumer),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, fc)
}
