// Package web provides the HTTP server and JSON API for the migration
// workbench.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/omixflow/workbench/internal/config"
	"github.com/omixflow/workbench/internal/core"
	custommw "github.com/omixflow/workbench/internal/web/middleware"
)

// Server is the HTTP server for the workbench API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	if len(s.cfg.Security.TrustedProxies) > 0 {
		s.router.Use(custommw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	} else {
		s.router.Use(chimw.RealIP)
	}
	s.router.Use(custommw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(custommw.APIKeyAuth(&s.cfg.Security))
		r.Use(custommw.Owner)

		// Workspace file tree
		r.Route("/files", func(r chi.Router) {
			r.Get("/", s.handleGetTree)
			r.Post("/", s.handleCreateNode)
			r.Get("/{nodeID}", s.handleGetNode)
			r.Put("/{nodeID}", s.handleUpdateNode)
			r.Delete("/{nodeID}", s.handleDeleteNode)
			r.Patch("/{nodeID}/toggle", s.handleToggleNode)
			r.Patch("/{nodeID}/rename", s.handleRenameNode)
		})

		// Profiles and scan runs
		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", s.handleCreateProfile)
			r.Get("/", s.handleListProfiles)

			r.Route("/{profileID}", func(r chi.Router) {
				r.Get("/", s.handleGetProfile)
				r.Delete("/", s.handleDeleteProfile)

				r.Post("/scan-runs", s.handleReplaceScanRun)
				r.Get("/scan-runs/{runID}", s.handleGetScanRun)

				// Transform data replacement is the heavy write path;
				// it gets its own tighter limit.
				r.Route("/scan-runs/{runID}/transform-data", func(r chi.Router) {
					if s.cfg.Rate.Enabled && s.cfg.Rate.ReplaceLimit > 0 {
						replaceLimiter := newRateLimiter(s.cfg.Rate.ReplaceLimit, time.Minute)
						r.Use(replaceLimiter.middleware)
					}
					r.Put("/", s.handleReplaceTransformData)
					r.Get("/", s.handleListTransformData)
					r.Delete("/", s.handleDeleteTransformData)
				})

				r.Route("/key-values", func(r chi.Router) {
					r.Get("/", s.handleGetKeyValues)
					r.Put("/", s.handleReplaceKeyValues)
					r.Post("/", s.handleAppendKeyValue)
					r.Patch("/{key}", s.handleUpdateKeyValue)
					r.Delete("/{key}", s.handleDeleteKeyValue)
				})

				r.Post("/mappings", s.handleSaveMappings)
				r.Get("/mappings", s.handleGetMappings)
			})
		})

		// Audit trail
		r.Post("/audit", s.handleRecordAudit)
		r.Get("/audit", s.handleListAudit)
	})
}

// Start begins listening for HTTP requests using the configured timeouts.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking; the API serves no frames
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	// Start cleanup goroutine
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: time.Now(),
		}
		return true
	}

	// Reset tokens if window has passed
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	// Check if we have tokens left
	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		// Use X-Real-IP if set (by RealIP middleware)
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			ip = realIP
		}

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
