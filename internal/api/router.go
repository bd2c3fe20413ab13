package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ramonehamilton/BG-Companion/internal/api/handlers"
	"github.com/ramonehamilton/BG-Companion/internal/api/response"
	"github.com/ramonehamilton/BG-Companion/internal/metrics"
	"github.com/ramonehamilton/BG-Companion/internal/version"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint (no JSON content-type requirement)
	s.router.Get("/ws", s.wsHub.ServeWs)

	if s.deps.Gatherer != nil {
		s.router.Handle("/metrics", metrics.Handler(s.deps.Gatherer))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(jsonContentTypeMiddleware)

		if s.deps.Session != nil {
			sessionHandler := handlers.NewSessionHandler(s.deps.Session)
			r.Route("/session", func(r chi.Router) {
				r.Get("/", sessionHandler.GetStatus)
				r.Get("/entities/{entityID}", sessionHandler.GetEntity)
				r.Post("/board", sessionHandler.PostOpponentBoard)
			})
		}

		if s.deps.Matches != nil {
			matchHandler := handlers.NewMatchHandler(s.deps.Matches)
			r.Route("/matches", func(r chi.Router) {
				r.Get("/", matchHandler.GetMatches)
				r.Get("/stats", matchHandler.GetStats)
				r.Get("/{matchID}", matchHandler.GetMatch)
				r.Delete("/{matchID}", matchHandler.DeleteMatch)
				r.Get("/{matchID}/turns", matchHandler.GetMatchTurns)
			})
		}

		systemHandler := handlers.NewSystemHandler(s.deps.Metrics, s.wsHub.ClientCount)
		r.Route("/system", func(r chi.Router) {
			r.Get("/stats", systemHandler.GetStats)
			r.Get("/version", systemHandler.GetVersion)
		})
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Health == nil {
		response.JSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": version.Service,
		})
		return
	}
	healthy, body := s.deps.Health()
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, body)
}
