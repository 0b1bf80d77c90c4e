package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/scriptorium/internal/hub"
	"github.com/nao1215/scriptorium/internal/model"
	"github.com/nao1215/scriptorium/internal/runner"
)

// runAllResponse is the body of POST /api/run.
type runAllResponse struct {
	// Results maps each script name to its outcome.
	Results map[string]model.ScriptResult `json:"results"`
}

// handleRunScript executes one script and returns its result.
func (s *Server) handleRunScript(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	req, err := decodeRunRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	s.extendWriteDeadline(w)

	input := req.InputBytes()
	result, err := s.engine.Run(r.Context(), name, req.Args, input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.recordRun(r.Context(), name, req.Args, input, result)
	writeJSON(w, http.StatusOK, result)
}

// handleRunAll executes many scripts against the same input. The names
// query parameter selects a comma-separated subset; without it every
// known script runs. Per-script failures come back inside the result
// map, so the response is always 200.
func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	names := splitNames(r.URL.Query().Get("names"))
	if len(names) == 0 {
		names = s.store.List()
	}

	s.extendWriteDeadline(w)

	input := req.InputBytes()
	results := s.engine.RunAll(r.Context(), names, req.Args, input)
	for name, result := range results {
		s.recordRun(r.Context(), name, req.Args, input, result)
	}

	writeJSON(w, http.StatusOK, runAllResponse{Results: results})
}

// handleListRuns returns recent history records, newest first. The
// script query parameter filters by script name and limit caps the
// count.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled", "")
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter", raw)
			return
		}
		limit = parsed
	}

	records, err := s.db.ListRuns(r.Context(), r.URL.Query().Get("script"), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}
	if records == nil {
		records = []*model.RunRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGetRun returns one history record by id.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled", "")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id", r.PathValue("id"))
		return
	}

	record, err := s.db.GetRun(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get run", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get run", err.Error())
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "run not found", r.PathValue("id"))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// recordRun announces a finished run and, when history is enabled,
// persists it. Persistence failures are logged, not propagated; the run
// itself succeeded and the caller deserves its result.
func (s *Server) recordRun(ctx context.Context, name string, args []string, input []byte, result model.ScriptResult) {
	s.hub.Broadcast(hub.Event{
		Type:   hub.EventRunFinished,
		Script: name,
		Status: result.Status(),
	})

	if s.db == nil {
		return
	}
	record := &model.RunRecord{
		Script:       name,
		Args:         args,
		InputSHA256:  runner.InputDigest(input),
		ScriptResult: result,
	}
	if _, err := s.db.InsertRun(ctx, record); err != nil {
		s.logger.Warn("failed to record run", "script", name, "error", err)
	}
}

// extendWriteDeadline gives run endpoints a write deadline sized from
// the run timeout, since the server itself sets no global write timeout.
func (s *Server) extendWriteDeadline(w http.ResponseWriter) {
	deadline := time.Now().Add(s.cfg.RunTimeout + runWriteGrace)
	if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil {
		s.logger.Debug("failed to set write deadline", "error", err)
	}
}

// decodeRunRequest reads an optional RunRequest body. An empty body is
// a valid request with null input and no arguments.
func decodeRunRequest(w http.ResponseWriter, r *http.Request) (model.RunRequest, error) {
	var req model.RunRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		return req, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}
	return req, nil
}

// splitNames parses the comma-separated names query parameter.
func splitNames(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
