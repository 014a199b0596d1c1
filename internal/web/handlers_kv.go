package web

// handlers_kv.go serves the per-profile key-value side table.

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/omixflow/workbench/internal/core"
)

// updateKeyValueRequest carries a partial update; nil fields stay unchanged.
type updateKeyValueRequest struct {
	Value  *string              `json:"value"`
	Value2 *string              `json:"value2"`
	Source *core.KeyValueSource `json:"source"`
}

func (s *Server) handleGetKeyValues(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	set, err := s.service.GetKeyValues(r.Context(), profileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleReplaceKeyValues(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req struct {
		Entries []core.KeyValueEntry `json:"entries"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	set, err := s.service.ReplaceKeyValues(r.Context(), profileID, req.Entries)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleAppendKeyValue(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var entry core.KeyValueEntry
	if err := decodeJSON(r, &entry); err != nil {
		s.respondError(w, r, err)
		return
	}

	set, err := s.service.AppendKeyValue(r.Context(), profileID, entry)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleUpdateKeyValue(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req updateKeyValueRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	entry, err := s.service.UpdateKeyValue(r.Context(), profileID, chi.URLParam(r, "key"), req.Value, req.Value2, req.Source)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteKeyValue(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.DeleteKeyValue(r.Context(), profileID, chi.URLParam(r, "key")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
