/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/members/*   Per-member ledger, points, slips, check-in, make-up
  /api/today/*     Today's aggregate state
  /api/top/*       Leaderboards
  /api/admin/*     Points and slip adjustments
  /api/debug/*     Forced reward evaluation (dev only)

SECURITY NOTE:
  No authentication middleware currently. The admin and debug groups
  must not be exposed publicly.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Member routes
		r.Route("/members/{member}", func(r chi.Router) {
			r.Get("/", h.GetMemberInfo)
			r.Get("/checkedin", h.GetCheckedIn)
			r.Get("/total", h.GetTotal)
			r.Get("/streak", h.GetStreak)
			r.Get("/missed", h.GetMissed)
			r.Get("/rank", h.GetRank)
			r.Get("/points", h.GetPoints)
			r.Get("/slips", h.GetSlips)
			r.Get("/dates", h.GetDates)
			r.Post("/checkin", h.CheckIn)
			r.Post("/makeup", h.MakeUpDays)
		})

		// Today routes
		r.Route("/today", func(r chi.Router) {
			r.Get("/amount", h.GetAmountToday)
		})

		// Leaderboard routes
		r.Route("/top", func(r chi.Router) {
			r.Get("/total", h.GetTopTotal)
			r.Get("/streak", h.GetTopStreak)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/points", h.AdminPoints)
			r.Post("/slips", h.AdminSlips)
		})

		// Debug routes
		r.Route("/debug", func(r chi.Router) {
			r.Post("/trigger", h.DebugTrigger)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
