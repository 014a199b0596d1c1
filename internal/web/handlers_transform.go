package web

// handlers_transform.go serves the bulk transform-data endpoints. The PUT
// is a whole-set replacement; there is no incremental append on purpose.

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/omixflow/workbench/internal/core"
)

// replaceTransformRequest carries the full record set for one scan run.
// A present-but-empty array clears the set; a missing array is rejected.
type replaceTransformRequest struct {
	Records []core.TransformRecordInput `json:"transformData"`
}

func (s *Server) handleReplaceTransformData(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req replaceTransformRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if s.cfg.Transform.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Transform.Timeout)
		defer cancel()
	}

	result, err := s.service.ReplaceTransformData(ctx, profileID, chi.URLParam(r, "runID"), req.Records)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListTransformData(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	records, err := s.service.ListTransformData(r.Context(), profileID, chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transformData": records,
		"count":         len(records),
	})
}

func (s *Server) handleDeleteTransformData(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	removed, err := s.service.DeleteTransformData(r.Context(), profileID, chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
