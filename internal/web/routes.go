package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-compare/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	compareHandler := handlers.NewCompareHandler(s.config, s.service)
	configHandler := handlers.NewConfigHandler(s.config, s.settings, s.service.Provider())

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/provider", configHandler.Provider)
		r.Post("/compare", compareHandler.Compare)
	})

	// Path used by existing clients of the comparison API
	s.router.Post("/compare", compareHandler.Compare)

	if s.recorder != nil {
		s.router.Handle("/metrics", s.recorder.Handler())
	}
}
