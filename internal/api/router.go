package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/hvac/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Device tree
		r.Get("/rooms", s.handleListRooms)
		r.Route("/room/{room}", func(r chi.Router) {
			r.Get("/", s.handleGetRoom)
			r.Get("/events", s.handleRoomEvents)

			r.Route("/policies", func(r chi.Router) {
				r.Get("/", s.handleListRoomPolicies)
				r.Post("/", s.handleCreateRoomPolicy)
				r.Put("/", s.handleUpdatePolicy)
				r.Delete("/", s.handleDeletePolicy)
			})

			r.Route("/rack/{rack}", func(r chi.Router) {
				r.Get("/", s.handleGetRack)
				r.Put("/status", s.handleSetRackStatus)

				r.Route("/device/{object}/policies", func(r chi.Router) {
					r.Get("/", s.handleListDevicePolicies)
					r.Post("/", s.handleCreateDevicePolicy)
					r.Put("/", s.handleUpdatePolicy)
					r.Delete("/", s.handleDeletePolicy)
				})
			})
		})

		// Cross-room policy creation (room resolved from the body)
		r.Post("/policies", s.handleCreatePolicy)

		// Command proxy into the CoAP gateway
		r.Post("/proxy/forward", s.handleProxyForward)

		// WebSocket live feed
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"rooms":   len(s.rooms),
	})
}
