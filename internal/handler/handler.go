package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/mtlprog/wbstatus/docs" // Register API docs
	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/handler/dto"
	"github.com/mtlprog/wbstatus/internal/metrics"
	"github.com/mtlprog/wbstatus/internal/middleware"
	"github.com/mtlprog/wbstatus/internal/report"
	"github.com/mtlprog/wbstatus/internal/service"
	"github.com/mtlprog/wbstatus/internal/static"
)

// Reporter builds reports and task states.
type Reporter interface {
	Build(ctx context.Context, params service.ReportParams) (*domain.Report, error)
	TaskState(ctx context.Context, taskID int, start, end time.Time) (*domain.TaskIntervalState, *domain.Task, error)
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config lists the handler dependencies. DB and Metrics are optional.
type Config struct {
	Reports  Reporter
	Renderer *report.Renderer
	DB       Pinger
	Metrics  *metrics.Metrics
	APIToken string
	Location *time.Location
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	reports        Reporter
	renderer       *report.Renderer
	db             Pinger
	metrics        *metrics.Metrics
	authMiddleware *middleware.AuthMiddleware
	loc            *time.Location
	now            func() time.Time
}

// New creates a new Handler instance with all dependencies.
func New(cfg Config) *Handler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		reports:        cfg.Reports,
		renderer:       cfg.Renderer,
		db:             cfg.DB,
		metrics:        cfg.Metrics,
		authMiddleware: middleware.NewAuthMiddleware(cfg.APIToken),
		loc:            loc,
		now:            time.Now,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	// Swagger UI
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler())

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	// API v1 routes with authentication
	mux.Handle("GET /api/v1/report", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleGetReport)))
	mux.Handle("GET /api/v1/report.txt", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleGetReportText)))
	mux.Handle("GET /api/v1/tasks/{id}/state", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleGetTaskState)))
}

// handleIndex serves the landing page.
func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(static.IndexHTML)); err != nil {
		slog.Debug("failed to write index page", "error", err)
	}
}

// handleHealthz returns 200 OK if the cache database, when configured, is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			slog.Error("database health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondDomainError maps err and writes it.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapDomainError(err)
	respondError(w, status, code, message)
}

// extractTaskID extracts and validates the task id path parameter.
// Returns (taskID, true) if valid, (0, false) if invalid (error already sent to client).
func extractTaskID(w http.ResponseWriter, r *http.Request) (int, bool) {
	name := r.PathValue("id")
	if name == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "task id is required")
		return 0, false
	}

	taskID, err := domain.ParseTaskName(name)
	if err != nil {
		respondDomainError(w, err)
		return 0, false
	}

	return taskID, true
}
