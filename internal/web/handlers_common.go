package web

// handlers_common.go contains shared request/response utilities used across
// handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/omixflow/workbench/internal/core"
	"github.com/omixflow/workbench/internal/web/middleware"
)

// maxBodyBytes caps request bodies at 32 MiB. The transform-data replace
// endpoint carries full record sets; everything else is far smaller.
const maxBodyBytes = 32 * 1024 * 1024

// writeJSON encodes v as JSON with the given status code.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// decodeJSON decodes the request body into v, enforcing the body size cap.
// Returns an InvalidArgument-wrapped error for malformed bodies so the
// standard error mapping applies.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required: %w", core.ErrInvalidArgument)
		}
		return fmt.Errorf("malformed request body: %v: %w", err, core.ErrInvalidArgument)
	}
	return nil
}

// profileIDParam parses the {profileID} URL parameter.
func profileIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "profileID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("profile id %q is not numeric: %w", raw, core.ErrInvalidArgument)
	}
	return id, nil
}

// ownerFromRequest returns the workspace owner identity resolved by the
// Owner middleware.
func ownerFromRequest(r *http.Request) string {
	return middleware.OwnerFromContext(r.Context())
}
