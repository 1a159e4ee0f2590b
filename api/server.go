/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/semesters/*                  Semester management
  /api/sections/{sectionID}/*       Membership, participations, reconcile
  /api/members/import               Bulk member creation from roster files
  /metrics                          Prometheus scrape endpoint

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Semester routes
		r.Route("/semesters", func(r chi.Router) {
			r.Get("/", h.ListSemesters)
			r.Post("/", h.CreateSemester)
			r.Get("/{id}", h.GetSemester)
			r.Put("/{id}", h.UpdateSemester)
			r.Delete("/{id}", h.DeleteSemester)
		})

		// Section routes
		r.Route("/sections", func(r chi.Router) {
			r.Post("/", h.CreateSection)

			r.Route("/{sectionID}", func(r chi.Router) {
				r.Post("/members", h.JoinSection)
				r.Post("/events", h.CreateEvent)

				// Participation routes
				r.Route("/participations", func(r chi.Router) {
					r.Post("/single", h.CreateParticipation)
					r.Delete("/single/{id}", h.DeleteParticipation)
					r.Post("/auto/{eventID}", h.CreateParticipationsFromFile)
					r.Get("/{eventID}", h.ListParticipantsForEvent)
					r.Delete("/{eventID}", h.DeleteAllForEvent)
					r.Delete("/{eventID}/member/{memberID}", h.DeleteParticipationByEventAndMember)
					r.Get("/pass/{threshold}/semester/{semesterID}", h.PassedThreshold)
				})

				// Reconciliation routes
				r.Post("/reconcile/{semesterID}", h.Reconcile)
			})
		})

		// Member routes
		r.Post("/members/import", h.ImportMembers)
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}
