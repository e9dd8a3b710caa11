package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a new HTTP router with all API endpoints.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(Recovery)
	r.Use(Logger)
	r.Use(PrivateSubnetOnly) // Restrict access to private subnets
	r.Use(JSONContentType)

	h := NewHandler(deps)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, r.URL.Path)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.CheckHealth)
		r.Get("/stats", h.GetStats)
		r.Get("/config", h.GetConfig)
	})

	return r
}
