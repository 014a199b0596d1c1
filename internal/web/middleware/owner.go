package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ownerCtxKey struct{}

// DefaultOwner is the workspace owner used when a request carries no
// X-User-ID header. Single-user deployments never set the header.
const DefaultOwner = "default"

// Owner resolves the workspace owner identity from the X-User-ID header and
// stores it in the request context. Handlers read it back with
// OwnerFromContext; the owner never appears in URLs.
func Owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if owner == "" {
			owner = DefaultOwner
		}
		ctx := context.WithValue(r.Context(), ownerCtxKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OwnerFromContext returns the owner identity resolved by Owner, or
// DefaultOwner when the middleware did not run.
func OwnerFromContext(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerCtxKey{}).(string); ok && owner != "" {
		return owner
	}
	return DefaultOwner
}
