/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. requestLogger: Structured request logging (zerolog)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/templates/*     Template and version management
  /api/versions/*      Version entity editing and publishing
  /api/system-types/*  Catalog browsing and generation
  /api/submissions/*   Submission lifecycle
  /api/meters/*        Meters and calibrations
  /api/instances/*     Readings
  /api/demo/*          Demo data (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Template routes
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Post("/generate", h.GenerateTemplate)
			r.Get("/{id}", h.GetTemplate)
			r.Get("/{id}/versions", h.ListVersions)
			r.Post("/{id}/versions", h.CreateVersion)
		})

		// Version routes
		r.Route("/versions", func(r chi.Router) {
			r.Get("/{id}", h.GetVersion)
			r.Post("/{id}/entities", h.AddEntity)
			r.Post("/{id}/publish", h.PublishVersion)
		})

		// System type catalog routes
		r.Route("/system-types", func(r chi.Router) {
			r.Get("/", h.ListSystemTypes)
			r.Get("/{code}/entities", h.ListSystemTypeEntities)
		})

		// Submission routes
		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", h.CreateSubmission)
			r.Get("/{id}", h.GetSubmission)
			r.Post("/{id}/instantiate", h.InstantiateForAssets)
			r.Put("/{id}/instances/{instanceID}/answers", h.SaveAnswers)
			r.Post("/{id}/submit", h.Submit)
		})

		// Meter routes
		r.Route("/meters", func(r chi.Router) {
			r.Get("/", h.ListMeters)
			r.Post("/", h.CreateMeter)
			r.Post("/{id}/calibrations", h.AddCalibration)
		})

		// Reading routes
		r.Route("/instances", func(r chi.Router) {
			r.Post("/{id}/readings", h.RecordReading)
		})

		// Demo routes (dev only)
		r.Route("/demo", func(r chi.Router) {
			r.Post("/seed", h.SeedDemo)
		})
	})

	return r
}

// requestLogger logs each request with method, path, status and duration.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
