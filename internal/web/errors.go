package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err)
//  3. The taxonomy determines the HTTP status; core.MapError supplies the
//     user-facing message and support code
//  4. Technical error + context is logged with the request id for correlation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/omixflow/workbench/internal/core"
)

// ErrorResponse is the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action)
// fields. Partial replace failures additionally carry committed counts.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	Removed    *int `json:"removed,omitempty"`
	Committed  *int `json:"committed,omitempty"`
	BatchIndex *int `json:"batchIndex,omitempty"`
	Batches    *int `json:"batches,omitempty"`
}

// statusForError maps the error taxonomy to HTTP status codes. Capacity
// and partial failures stay 500s; the body's code distinguishes them from
// generic server errors.
func statusForError(err error) int {
	var partial *core.PartialError
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidArgument),
		errors.Is(err, core.ErrInvalidParent),
		errors.Is(err, core.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrCapacityExceeded):
		return http.StatusInternalServerError
	case errors.As(err, &partial):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error server-side and writes the mapped
// user-facing JSON response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusForError(err)
	userMsg := core.MapError(err)

	requestID := middleware.GetReqID(r.Context())
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", requestID,
	)

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}

	if partial, ok := core.AsPartial(err); ok {
		resp.Removed = &partial.Removed
		resp.Committed = &partial.Committed
		resp.BatchIndex = &partial.BatchIndex
		resp.Batches = &partial.Batches
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}
