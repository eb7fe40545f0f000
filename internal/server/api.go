package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"lofi/internal/history"
	"lofi/internal/preflight"
)

const defaultJobListLimit = 50

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	preflight.Snapshot
	UploadDir    string           `json:"upload_dir"`
	ConvertedDir string           `json:"converted_dir"`
	History      *history.Summary `json:"history,omitempty"`
}

// JobListResponse is the payload of GET /api/jobs.
type JobListResponse struct {
	Jobs []*history.Record `json:"jobs"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Snapshot:     preflight.Collect(r.Context(), s.cfg),
		UploadDir:    s.cfg.Paths.UploadDir,
		ConvertedDir: s.cfg.Paths.ConvertedDir,
	}
	if s.history != nil {
		if summary, err := s.history.Summary(r.Context()); err == nil {
			resp.History = &summary
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "job history unavailable")
		return
	}
	query := r.URL.Query()

	var statuses []history.Status
	for _, value := range query["status"] {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := history.ParseStatus(part)
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(part))
				return
			}
			statuses = append(statuses, status)
		}
	}

	limit := defaultJobListLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := s.history.List(r.Context(), limit, statuses...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*history.Record{}
	}
	writeJSON(w, http.StatusOK, JobListResponse{Jobs: records})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "job history unavailable")
		return
	}
	rec, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
