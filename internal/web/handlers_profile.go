package web

// handlers_profile.go serves the profile registry and scan-run replacement.

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/omixflow/workbench/internal/core"
)

// replaceScanRunRequest carries one ingested tabular snapshot. Headers are
// required even when empty rows are submitted.
type replaceScanRunRequest struct {
	Description string   `json:"description"`
	Headers     []string `json:"headers"`
	Rows        [][]any  `json:"rows"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var params core.CreateProfileParams
	if err := decodeJSON(r, &params); err != nil {
		s.respondError(w, r, err)
		return
	}

	profile, err := s.service.CreateProfile(r.Context(), params)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.service.ListProfiles(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	profile, err := s.service.GetProfile(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.DeleteProfile(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceScanRun(w http.ResponseWriter, r *http.Request) {
	id, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req replaceScanRunRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	run, err := s.service.ReplaceScanRun(r.Context(), id, req.Description, req.Headers, req.Rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleGetScanRun(w http.ResponseWriter, r *http.Request) {
	id, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	run, err := s.service.GetScanRun(r.Context(), id, chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
