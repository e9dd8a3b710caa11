package api

import (
	"github.com/dnsprotect/dnsprotect/src/internal/interceptor"
	"github.com/dnsprotect/dnsprotect/src/internal/upstreams"
)

// DataResponse wraps successful responses with a "data" field.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// HealthResponse reports whether the proxy can answer queries.
type HealthResponse struct {
	Healthy   bool                        `json:"healthy"`
	Upstreams []upstreams.TransportStatus `json:"upstreams"`
	Cache     *CheckResult                `json:"cache,omitempty"`
}

// CheckResult represents the result of a single check.
type CheckResult struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// StatsResponse returns the query counters and cache size.
type StatsResponse struct {
	Queries      interceptor.Stats `json:"queries"`
	CacheEntries *int              `json:"cache_entries"` // null if no cache is configured
}

// ConfigResponse returns the effective configuration.
type ConfigResponse struct {
	ListenAddress string          `json:"listen_address"`
	Upstream      string          `json:"upstream"`
	Retries       int             `json:"retries"`
	Injections    []InjectionInfo `json:"injections"`
	Redirect      bool            `json:"redirect"`
	Settings      interface{}     `json:"settings"`
}

// InjectionInfo describes one registered injection.
type InjectionInfo struct {
	Name  string `json:"name"`
	Phase string `json:"phase"`
}
