package web

// handlers_audit.go serves the audit trail. The recorded user defaults to
// the request identity when the body omits one.

import (
	"net/http"
)

type recordAuditRequest struct {
	User    string `json:"user"`
	Action  string `json:"action"`
	Details string `json:"details"`
}

func (s *Server) handleRecordAudit(w http.ResponseWriter, r *http.Request) {
	var req recordAuditRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.User == "" {
		req.User = ownerFromRequest(r)
	}

	entry, err := s.service.RecordAudit(r.Context(), req.User, req.Action, req.Details)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListAudit(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
