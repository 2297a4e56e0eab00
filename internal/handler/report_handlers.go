package handler

import (
	"log/slog"
	"net/http"

	"github.com/mtlprog/wbstatus/internal/handler/dto"
	"github.com/mtlprog/wbstatus/internal/service"
)

// handleGetReport returns the board activity report as JSON.
// @Summary Get board activity report
// @Description Reconstruct who changed what on the team board over [start, end)
// @Tags reports
// @Produce json
// @Param start query string false "Interval start, RFC 3339 or YYYY-MM-DD (default: a week before end)"
// @Param end query string false "Interval end, RFC 3339 or YYYY-MM-DD (default: start of today)"
// @Param tasks query string false "Comma-separated task names, e.g. T1,T2"
// @Success 200 {object} dto.ReportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /report [get]
func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, err := dto.ParseReportQuery(r.URL.Query(), h.loc, h.now())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	rep, err := h.reports.Build(ctx, service.ReportParams{
		Start:   query.Start,
		End:     query.End,
		TaskIDs: query.TaskIDs,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewReportResponse(rep, h.renderer.View(rep)))
}

// handleGetReportText returns the board activity report as plain text.
// @Summary Get board activity report as text
// @Tags reports
// @Produce plain
// @Param start query string false "Interval start, RFC 3339 or YYYY-MM-DD"
// @Param end query string false "Interval end, RFC 3339 or YYYY-MM-DD"
// @Param tasks query string false "Comma-separated task names"
// @Success 200 {string} string
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /report.txt [get]
func (h *Handler) handleGetReportText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, err := dto.ParseReportQuery(r.URL.Query(), h.loc, h.now())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	rep, err := h.reports.Build(ctx, service.ReportParams{
		Start:   query.Start,
		End:     query.End,
		TaskIDs: query.TaskIDs,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := h.renderer.Render(w, rep); err != nil {
		slog.Error("failed to render report", "run_id", rep.RunID, "error", err)
	}
}

// handleGetTaskState returns the reconstructed state of one task.
// @Summary Get task interval state
// @Tags tasks
// @Produce json
// @Param id path string true "Task name, e.g. T123"
// @Param start query string false "Interval start, RFC 3339 or YYYY-MM-DD"
// @Param end query string false "Interval end, RFC 3339 or YYYY-MM-DD"
// @Success 200 {object} dto.TaskStateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/state [get]
func (h *Handler) handleGetTaskState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	query, err := dto.ParseReportQuery(r.URL.Query(), h.loc, h.now())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	state, task, err := h.reports.TaskState(ctx, taskID, query.Start, query.End)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskStateResponse(state, task))
}
