package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"energylens/internal/config"
	apierrors "energylens/internal/errors"
	"energylens/internal/services"
)

// DataHandler serves the aggregations behind the dashboard charts.
type DataHandler struct {
	service      *services.DataService
	paths        *config.Paths
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a data handler with RFC 7807 error handling.
func NewDataHandler(service *services.DataService, paths *config.Paths, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		paths:        paths,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/summary", h.GetSummary)
	r.Get("/consumers", h.GetConsumers)
	r.Get("/daily", h.GetDailyTrend)
	r.Get("/averages", h.GetAverages)
	r.Get("/hourly", h.GetHourlyProfile)
	r.Get("/weekday", h.GetWeekdayProfile)
	r.Get("/distribution", h.GetDistributions)

	r.Get("/download/{filename}", h.DownloadReport)

	return r
}

// consumersParam extracts the repeatable consumer query parameter.
func consumersParam(r *http.Request) ([]string, error) {
	values := r.URL.Query()["consumer"]
	consumers := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, apierrors.ErrValidation("consumer", "Consumer name must not be empty")
		}
		if len(v) > 128 {
			return nil, apierrors.ErrValidation("consumer", "Consumer name too long")
		}
		consumers = append(consumers, v)
	}
	return consumers, nil
}

// GetSummary handles GET /api/data/summary.
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// GetConsumers handles GET /api/data/consumers.
func (h *DataHandler) GetConsumers(w http.ResponseWriter, r *http.Request) {
	consumers, err := h.service.Consumers(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"consumers": consumers,
		"count":     len(consumers),
	})
}

// GetDailyTrend handles GET /api/data/daily.
func (h *DataHandler) GetDailyTrend(w http.ResponseWriter, r *http.Request) {
	consumers, err := consumersParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	points, err := h.service.DailyTrend(r.Context(), consumers)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"points": points})
}

// GetAverages handles GET /api/data/averages.
func (h *DataHandler) GetAverages(w http.ResponseWriter, r *http.Request) {
	consumers, err := consumersParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	averages, err := h.service.AverageByConsumer(r.Context(), consumers)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"averages": averages})
}

// GetHourlyProfile handles GET /api/data/hourly.
func (h *DataHandler) GetHourlyProfile(w http.ResponseWriter, r *http.Request) {
	consumers, err := consumersParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	points, err := h.service.HourlyProfile(r.Context(), consumers)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"points": points})
}

// GetWeekdayProfile handles GET /api/data/weekday.
func (h *DataHandler) GetWeekdayProfile(w http.ResponseWriter, r *http.Request) {
	consumers, err := consumersParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	points, err := h.service.WeekdayProfile(r.Context(), consumers)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"points": points})
}

// GetDistributions handles GET /api/data/distribution.
func (h *DataHandler) GetDistributions(w http.ResponseWriter, r *http.Request) {
	consumers, err := consumersParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	distributions, err := h.service.Distributions(r.Context(), consumers)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"distributions": distributions})
}

// DownloadReport handles GET /api/data/download/{filename}, serving the
// CSV reports written by the export stage.
func (h *DataHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("filename", "Invalid report filename"))
		return
	}
	if !strings.HasSuffix(filename, ".csv") && !strings.HasSuffix(filename, ".csv.gz") {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("filename", "Only CSV reports can be downloaded"))
		return
	}

	path := h.paths.ReportPath(filename)
	if _, err := os.Stat(path); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("Report"))
		return
	}

	h.logger.InfoContext(r.Context(), "serving report download",
		slog.String("filename", filename))

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if strings.HasSuffix(filename, ".gz") {
		w.Header().Set("Content-Type", "application/gzip")
	} else {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	}
	http.ServeFile(w, r, path)
}
