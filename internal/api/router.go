package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency check in GET /health.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: "NotFound", Message: "Resource not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Code: "MethodNotAllowed"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/client-login", s.handleClientLogin)
		r.Post("/auth/forgot-password", s.handleForgotPassword)
		r.Post("/auth/reset-password", s.handleResetPassword)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Registration is anonymous; everything else under /users needs a token.
		// Both live on one subrouter since chi mounts a path only once.
		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Get("/", s.handleSearchUsers)
				r.Get("/me", s.handleMe)
				r.Get("/{id}", s.handleGetUser)
				r.Put("/{id}", s.handleUpdateUser)
				r.Put("/{id}/admin-status", s.handleChangeAdminStatus)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Post("/user-tokens/verify", s.handleVerifyToken)

			r.Route("/clients", func(r chi.Router) {
				r.Post("/", s.handleCreateClient)
				r.Get("/", s.handleSearchClients)
				r.Get("/{id}", s.handleGetClient)
			})

			r.Route("/experiments", func(r chi.Router) {
				r.Post("/", s.handleCreateExperiment)
				r.Get("/", s.handleSearchExperiments)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetExperiment)
					r.Get("/measurements", s.handleListMeasurements)
					r.Put("/start", s.handleStartExperiment)
					r.Put("/stop", s.handleStopExperiment)
				})
			})

			r.Post("/measurements", s.handleCreateMeasurement)
			r.Get("/audit-logs", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth reports the server version and the state of each
// dependency. Any failing dependency turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	checks := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.health[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
