package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/cache"
	"github.com/dnsprotect/dnsprotect/src/internal/config"
	"github.com/dnsprotect/dnsprotect/src/internal/injections"
	"github.com/dnsprotect/dnsprotect/src/internal/interceptor"
	"github.com/dnsprotect/dnsprotect/src/internal/lists"
	"github.com/dnsprotect/dnsprotect/src/internal/upstreams"
)

type fakeCluster struct {
	statuses []upstreams.TransportStatus
}

func (f *fakeCluster) Status() []upstreams.TransportStatus { return f.statuses }
func (f *fakeCluster) String() string { return "random [doh://dns.google/dns-query]" }

type fakeStats struct {
	stats interceptor.Stats
}

func (f *fakeStats) Stats() interceptor.Stats { return f.stats }

type failingStore struct {
	cache.Store
}

func (failingStore) Ping(context.Context) error { return fmt.Errorf("connection refused") }

func testConfig() *config.Config {
	cfg, err := config.ParseConfig([]byte(`[forward]
servers = ["dns.google"]
retries = 2
`))
	if err != nil {
		panic(err)
	}
	return cfg
}

func testDeps(ready bool) Dependencies {
	return Dependencies{
		Config:  testConfig(),
		Cluster: &fakeCluster{statuses: []upstreams.TransportStatus{{Server: "doh://dns.google/dns-query", Ready: ready}}},
		Stats:   &fakeStats{stats: interceptor.Stats{Received: 10, Forwarded: 7, Blocked: 2, Failed: 1}},
		Pipeline: injections.NewPipeline(
			injections.NewDomainBlocklistFromSet(lists.NewDomainSet("ads.example.com")),
		),
	}
}

func doRequest(t *testing.T, handler http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name        string
		ready       bool
		store       cache.Store
		wantStatus  int
		wantHealthy bool
	}{
		{"ready upstream", true, nil, http.StatusOK, true},
		{"no ready upstream", false, nil, http.StatusServiceUnavailable, false},
		{"reachable cache", true, cache.NewMemoryStore(10), http.StatusOK, true},
		{"unreachable cache", true, failingStore{}, http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps(tt.ready)
			deps.Store = tt.store

			rec := doRequest(t, NewRouter(deps), "/api/v1/health", "127.0.0.1:5000")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var health HealthResponse
			decodeData(t, rec, &health)
			if health.Healthy != tt.wantHealthy {
				t.Errorf("expected healthy=%v, got %v", tt.wantHealthy, health.Healthy)
			}
			if len(health.Upstreams) != 1 {
				t.Errorf("expected 1 upstream, got %d", len(health.Upstreams))
			}
			if (tt.store != nil) != (health.Cache != nil) {
				t.Errorf("unexpected cache check: %+v", health.Cache)
			}
		})
	}
}

func TestStats(t *testing.T) {
	store := cache.NewMemoryStore(10)
	if err := store.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	deps := testDeps(true)
	deps.Store = store

	rec := doRequest(t, NewRouter(deps), "/api/v1/stats", "192.168.1.20:5000")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var stats StatsResponse
	decodeData(t, rec, &stats)
	if stats.Queries.Received != 10 || stats.Queries.Blocked != 2 {
		t.Errorf("unexpected counters: %+v", stats.Queries)
	}
	if stats.CacheEntries == nil || *stats.CacheEntries != 1 {
		t.Errorf("expected 1 cache entry, got %v", stats.CacheEntries)
	}
}

func TestStats_NoCache(t *testing.T) {
	rec := doRequest(t, NewRouter(testDeps(true)), "/api/v1/stats", "10.0.0.5:5000")

	var stats StatsResponse
	decodeData(t, rec, &stats)
	if stats.CacheEntries != nil {
		t.Errorf("expected null cache entries, got %d", *stats.CacheEntries)
	}
}

func TestConfig(t *testing.T) {
	rec := doRequest(t, NewRouter(testDeps(true)), "/api/v1/config", "[::1]:5000")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var cfg ConfigResponse
	decodeData(t, rec, &cfg)
	if cfg.ListenAddress != "0.0.0.0:53" {
		t.Errorf("unexpected listen address: %s", cfg.ListenAddress)
	}
	if cfg.Retries != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.Retries)
	}
	if len(cfg.Injections) != 1 || cfg.Injections[0].Name != "domain-blocklist" || cfg.Injections[0].Phase != "BEFORE_QUERY" {
		t.Errorf("unexpected injections: %+v", cfg.Injections)
	}
}

func TestPrivateSubnetOnly(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		wantStatus int
	}{
		{"loopback", "127.0.0.1:1000", "", http.StatusOK},
		{"lan", "192.168.1.10:1000", "", http.StatusOK},
		{"ipv6 ula", "[fd00::10]:1000", "", http.StatusOK},
		{"public", "203.0.113.7:1000", "", http.StatusForbidden},
		{"public behind proxy", "127.0.0.1:1000", "203.0.113.7, 10.0.0.1", http.StatusForbidden},
		{"lan behind proxy", "127.0.0.1:1000", "192.168.1.20", http.StatusOK},
		{"link-local v6", "[fe80::1%eth0]:1000", "", http.StatusOK},
		{"garbage", "not-an-ip", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			rec := httptest.NewRecorder()
			NewRouter(testDeps(true)).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	rec := doRequest(t, NewRouter(testDeps(true)), "/api/v1/lists", "127.0.0.1:5000")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected not_found, got %s", resp.Error.Code)
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestServer_ServeAndStop(t *testing.T) {
	srv := NewServer("127.0.0.1:0", testDeps(true))
	ln, err := newLocalListener()
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() error = %v", err)
	}
}

func newLocalListener() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}
