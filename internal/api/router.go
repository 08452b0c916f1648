package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/audit", s.handleListAudit)

		r.Route("/connectors", func(r chi.Router) {
			s.propertyRoutes(r, property.EntityConnector)
			r.Get("/{id}", s.handleGetConnector)
			r.Get("/{id}/connection", s.handleGetConnectorConnection)
		})

		r.Route("/devices", func(r chi.Router) {
			s.propertyRoutes(r, property.EntityDevice)
			r.Get("/", s.handleListDevices)
			r.Get("/{id}", s.handleGetDevice)
			r.Get("/{id}/channels", s.handleListChannels)
			r.Get("/{id}/connection", s.handleGetDeviceConnection)
		})

		r.Route("/channels", func(r chi.Router) {
			s.propertyRoutes(r, property.EntityChannel)
			r.Get("/{id}", s.handleGetChannel)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// propertyRoutes mounts the property endpoints of one entity kind.
func (s *Server) propertyRoutes(r chi.Router, entity property.EntityKind) {
	r.Route("/properties/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetProperty(entity))
		r.Delete("/", s.handleDeleteProperty(entity))
		r.Get("/state", s.handleGetPropertyState(entity))
		r.Put("/state", s.handlePutPropertyState(entity))
		r.Get("/history", s.handleGetPropertyHistory(entity))
	})
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
