package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/cache"
	"github.com/dnsprotect/dnsprotect/src/internal/config"
	"github.com/dnsprotect/dnsprotect/src/internal/injections"
	"github.com/dnsprotect/dnsprotect/src/internal/interceptor"
	"github.com/dnsprotect/dnsprotect/src/internal/upstreams"
)

const storeCheckTimeout = 2 * time.Second

// UpstreamStatusProvider reports forward server readiness.
type UpstreamStatusProvider interface {
	Status() []upstreams.TransportStatus
	String() string
}

// StatsProvider reports interceptor counters.
type StatsProvider interface {
	Stats() interceptor.Stats
}

// Dependencies holds everything the handlers read from.
type Dependencies struct {
	Config   *config.Config
	Cluster  UpstreamStatusProvider
	Stats    StatsProvider
	Pipeline *injections.Pipeline
	// Store is nil when no cache is configured.
	Store cache.Store
}

// Handler manages all API endpoints and dependencies.
type Handler struct {
	deps Dependencies
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps}
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(DataResponse{Data: data})
}

// writeJSONData writes a successful JSON response with data.
func writeJSONData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

// CheckHealth reports upstream readiness and cache reachability.
// GET /api/v1/health
func (h *Handler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Upstreams: h.deps.Cluster.Status(),
	}

	for _, status := range response.Upstreams {
		if status.Ready {
			response.Healthy = true
			break
		}
	}

	if h.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), storeCheckTimeout)
		defer cancel()

		if err := h.deps.Store.Ping(ctx); err != nil {
			response.Healthy = false
			response.Cache = &CheckResult{Passed: false, Message: "Cache store is unreachable: " + err.Error()}
		} else {
			response.Cache = &CheckResult{Passed: true, Message: "Cache store is reachable"}
		}
	}

	statusCode := http.StatusOK
	if !response.Healthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, response)
}

// GetStats returns the query counters.
// GET /api/v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	response := StatsResponse{Queries: h.deps.Stats.Stats()}

	if h.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), storeCheckTimeout)
		defer cancel()

		n, err := h.deps.Store.Len(ctx)
		if err != nil {
			WriteInternalError(w, "Failed to count cache entries: "+err.Error())
			return
		}
		response.CacheEntries = &n
	}

	writeJSONData(w, response)
}

// GetConfig returns the effective configuration.
// GET /api/v1/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.deps.Config

	response := ConfigResponse{
		ListenAddress: cfg.General.GetListenAddress(),
		Upstream:      h.deps.Cluster.String(),
		Retries:       cfg.Forward.Retries,
		Injections:    []InjectionInfo{},
		Redirect:      cfg.Redirect.IsEnabled(),
		Settings:      cfg.Injections,
	}
	if h.deps.Pipeline != nil {
		for _, inj := range h.deps.Pipeline.Injections() {
			response.Injections = append(response.Injections, InjectionInfo{
				Name:  inj.Name(),
				Phase: inj.Phase().String(),
			})
		}
	}

	writeJSONData(w, response)
}
