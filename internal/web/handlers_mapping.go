package web

// handlers_mapping.go serves the per-profile field-mapping set. Saving is a
// whole-set replacement, matching how mapping sheets are edited and
// re-submitted as a unit.

import (
	"net/http"

	"github.com/omixflow/workbench/internal/core"
)

type saveMappingsRequest struct {
	Mappings      []core.FieldMapping `json:"mappings"`
	SourceHeaders []string            `json:"sourceHeaders"`
}

func (s *Server) handleSaveMappings(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req saveMappingsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	set, err := s.service.SaveMappings(r.Context(), profileID, req.Mappings, req.SourceHeaders)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleGetMappings(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	set, err := s.service.GetMappings(r.Context(), profileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}
