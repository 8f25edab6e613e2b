package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	apierrors "energylens/internal/errors"
	"energylens/internal/services"
)

// PipelineHandler exposes run control and run history.
type PipelineHandler struct {
	service      *services.PipelineService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPipelineHandler creates a pipeline handler.
func NewPipelineHandler(service *services.PipelineService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PipelineHandler {
	return &PipelineHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "pipeline_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the pipeline routes.
func (h *PipelineHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/run", h.TriggerRun)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{runID}", h.GetRun)
	r.Get("/status", h.GetStatus)

	return r
}

// TriggerRun handles POST /api/pipeline/run. Returns 202 with the run ID;
// progress is observable on the runs endpoints and the websocket.
func (h *PipelineHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	runID, err := h.service.Trigger(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"run_id": runID,
		"status": "accepted",
	})
}

// ListRuns handles GET /api/pipeline/runs.
func (h *PipelineHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.service.Runs(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /api/pipeline/runs/{runID}.
func (h *PipelineHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if _, err := uuid.Parse(runID); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("runID", "Run ID must be a UUID"))
		return
	}

	snap, err := h.service.Status(r.Context(), runID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, snap)
}

// GetStatus handles GET /api/pipeline/status, reporting the latest run.
func (h *PipelineHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"active": h.service.Active(),
	}
	if latest, ok := h.service.Latest(r.Context()); ok {
		response["latest"] = latest
	}
	render.JSON(w, r, response)
}
