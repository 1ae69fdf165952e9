package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/content-pipeline/internal/history"
	"github.com/jonathan/content-pipeline/internal/pipeline"
	"github.com/jonathan/content-pipeline/internal/schemas"
	"github.com/jonathan/content-pipeline/internal/types"
)

const (
	maxRequestBody = 1 << 20
	redacted       = "***"
)

// RunResponse is returned by POST /runs.
type RunResponse struct {
	Record *pipeline.RunRecord `json:"record"`
	Error  string              `json:"error,omitempty"`
}

// RunsResponse is returned by GET /runs.
type RunsResponse struct {
	Status pipeline.Status      `json:"status"`
	Runs   []pipeline.RunRecord `json:"runs"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateRun runs the pipeline synchronously. An empty body runs the
// default batch; otherwise the body must be a JSON array of inspirations.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var batch []types.Inspiration
	if len(bytes.TrimSpace(body)) > 0 {
		batch, err = schemas.DecodeInspirations(body)
		if err != nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
	}

	if !s.runMu.TryLock() {
		s.errorResponse(w, HTTPStatus(ErrRunInProgress), ErrRunInProgress.Error())
		return
	}
	defer s.runMu.Unlock()

	record, runErr := s.cfg.Runner.Run(r.Context(), batch)
	if record == nil {
		if runErr == nil {
			runErr = errors.New("run produced no record")
		}
		s.errorResponse(w, HTTPStatus(runErr), runErr.Error())
		return
	}

	resp := RunResponse{Record: record}
	status := http.StatusOK
	if runErr != nil {
		resp.Error = runErr.Error()
		if errors.Is(runErr, pipeline.ErrNoInspirations) || errors.Is(runErr, pipeline.ErrPipelineDisabled) {
			status = HTTPStatus(runErr)
		}
	}
	s.jsonResponse(w, status, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	records := s.readRuns()
	if records == nil {
		records = []pipeline.RunRecord{}
	}
	s.jsonResponse(w, http.StatusOK, RunsResponse{Status: pipeline.RunStatus(records), Runs: records})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	records := s.readRuns()
	// Records are oldest first; a later run with the same id wins.
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].RunID == id {
			s.jsonResponse(w, http.StatusOK, records[i])
			return
		}
	}
	err := &ErrRunNotFound{RunID: id}
	s.errorResponse(w, HTTPStatus(err), err.Error())
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	entries, err := s.cfg.History.Entries(r.Context())
	if err != nil {
		s.logger.Error("Failed to read publish history", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "failed to read publish history")
		return
	}
	s.jsonResponse(w, http.StatusOK, history.Summarize(entries, s.cfg.Registry.Names(), s.cfg.Now()))
}

// handleListPlatforms lists descriptors with setting values masked; settings
// hold credentials such as app_secret and bearer tokens.
func (s *Server) handleListPlatforms(w http.ResponseWriter, _ *http.Request) {
	platforms := s.cfg.Registry.List()
	for i := range platforms {
		masked := make(map[string]string, len(platforms[i].Settings))
		for key, value := range platforms[i].Settings {
			if value != "" {
				value = redacted
			}
			masked[key] = value
		}
		platforms[i].Settings = masked
	}
	s.jsonResponse(w, http.StatusOK, platforms)
}

// readRuns logs unreadable records and returns the readable ones.
func (s *Server) readRuns() []pipeline.RunRecord {
	records, err := pipeline.ListRuns(s.cfg.OutputRoot)
	if err != nil {
		s.logger.Warn("Some run records could not be read", zap.Error(err))
	}
	return records
}
