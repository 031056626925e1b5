package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dvloznov/monomind/internal/api/middleware"
	"github.com/dvloznov/monomind/internal/jobs"
	"github.com/dvloznov/monomind/internal/logger"
	"github.com/go-chi/chi/v5"
)

const maxListLimit = 100

// RunsHandler exposes the audit jobs of pipeline runs.
type RunsHandler struct {
	store jobs.JobStore
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(store jobs.JobStore) *RunsHandler {
	return &RunsHandler{store: store}
}

// GetRun handles GET /api/v1/runs/{run_id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "run_id")

	job, err := h.store.GetJob(ctx, runID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Run not found")
			return
		}
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListRuns handles GET /api/v1/users/{user_id}/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := userIDParam(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: userID,
		Status: jobs.JobStatus(query.Get("status")),
		Limit:  maxListLimit,
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit < maxListLimit {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset > 0 {
			filter.Offset = offset
		}
	}

	list, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  list,
		"count": len(list),
	})
}
