package web

// handlers_tree.go serves the per-owner workspace file tree. Node ids are
// opaque strings; the owner comes from the request identity, never the URL.

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/omixflow/workbench/internal/core"
)

// treeResponse is the envelope for full-tree reads.
type treeResponse struct {
	Tree           []core.Node `json:"tree"`
	SelectedFileID string      `json:"selectedFileId,omitempty"`
}

// createNodeRequest mirrors the create form: type selects file or folder,
// parentId is optional (root placement), name is optional (kind default).
type createNodeRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
	Type     string `json:"type"`
}

func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	ws, err := s.service.GetTree(r.Context(), ownerFromRequest(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, treeResponse{
		Tree:           ws.Tree,
		SelectedFileID: ws.SelectedNodeID,
	})
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	node, err := s.service.CreateNode(r.Context(), ownerFromRequest(r), req.ParentID, core.NodeKind(req.Type), req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.service.GetNode(r.Context(), ownerFromRequest(r), chi.URLParam(r, "nodeID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var patch core.NodePatch
	if err := decodeJSON(r, &patch); err != nil {
		s.respondError(w, r, err)
		return
	}

	id := chi.URLParam(r, "nodeID")
	if err := s.service.UpdateNode(r.Context(), ownerFromRequest(r), id, patch); err != nil {
		s.respondError(w, r, err)
		return
	}
	// GetNode would move the selection; a plain ack avoids that side effect.
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteNode(r.Context(), ownerFromRequest(r), chi.URLParam(r, "nodeID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expanded bool `json:"expanded"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.ToggleExpanded(r.Context(), ownerFromRequest(r), chi.URLParam(r, "nodeID"), req.Expanded); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"expanded": req.Expanded})
}

func (s *Server) handleRenameNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	id := chi.URLParam(r, "nodeID")
	if err := s.service.RenameNode(r.Context(), ownerFromRequest(r), id, req.Label); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "label": req.Label})
}
