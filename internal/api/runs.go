package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/demensdeum/coverseer/internal/history"
)

// List pagination bounds, matching the history repository's clamps.
const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxRunIDLen      = 64
)

// handleListRuns returns recorded runs, most recent first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "run history unavailable")
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	list, err := s.history.ListRuns(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// handleGetRun returns one recorded run by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "run history unavailable")
		return
	}

	runID := chi.URLParam(r, "id")
	if runID == "" || len(runID) > maxRunIDLen {
		writeBadRequest(w, "invalid run ID")
		return
	}

	run, err := s.history.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeNotFound(w, "run not found")
			return
		}
		s.logger.Error("failed to get run", "run_id", runID, "error", err)
		writeInternalError(w, "failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleListRunVerdicts returns a run's recorded verdicts, most recent first.
func (s *Server) handleListRunVerdicts(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "run history unavailable")
		return
	}

	runID := chi.URLParam(r, "id")
	if runID == "" || len(runID) > maxRunIDLen {
		writeBadRequest(w, "invalid run ID")
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	list, err := s.history.ListVerdicts(r.Context(), runID, filter)
	if err != nil {
		s.logger.Error("failed to list verdicts", "run_id", runID, "error", err)
		writeInternalError(w, "failed to list verdicts")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// parseListFilter parses limit and offset query parameters with bounds
// enforcement.
func parseListFilter(r *http.Request) (history.Filter, error) {
	limit, err := parseListLimit(r.URL.Query().Get("limit"))
	if err != nil {
		return history.Filter{}, err
	}

	offset, err := parseListOffset(r.URL.Query().Get("offset"))
	if err != nil {
		return history.Filter{}, err
	}

	return history.Filter{Limit: limit, Offset: offset}, nil
}

// parseListLimit parses the limit query parameter.
func parseListLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxListLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}

// parseListOffset parses the offset query parameter.
func parseListOffset(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid offset")
	}

	return offset, nil
}
