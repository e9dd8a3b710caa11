package upstreams

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
)

func TestDoHTransport_Query(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/dns-query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != dnsMessageContentType || r.Header.Get("Content-Type") != dnsMessageContentType {
			t.Errorf("unexpected headers %v", r.Header)
		}

		query, err := base64.RawURLEncoding.DecodeString(r.URL.Query().Get("dns"))
		if err != nil {
			http.Error(w, "bad dns parameter", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", dnsMessageContentType)
		w.Write(answerFor(t, query, "192.0.2.10"))
	}))
	defer srv.Close()

	transport, err := NewDoHTransport(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewDoHTransport() error = %v", err)
	}
	defer transport.Close()

	resp, err := transport.Query(context.Background(), newQuery(t, 0x4242, "example.com"))
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if id := uint16(resp[0])<<8 | uint16(resp[1]); id != 0x4242 {
		t.Errorf("response id = %04x, want 4242", id)
	}
	if ip := answerIP(t, resp); ip != "192.0.2.10" {
		t.Errorf("answer = %s, want 192.0.2.10", ip)
	}
}

func TestDoHTransport_ErrorStatus(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	transport, err := NewDoHTransport(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewDoHTransport() error = %v", err)
	}
	defer transport.Close()

	_, err = transport.Query(context.Background(), newQuery(t, 1, "example.com"))
	if !stderrors.Is(err, &errors.Error{Code: errors.ErrCodeUpstream}) {
		t.Errorf("Query() error = %v, want upstream error", err)
	}
}

func TestDoHTransport_Closed(t *testing.T) {
	transport, err := NewDoHTransport("dns.example", nil)
	if err != nil {
		t.Fatalf("NewDoHTransport() error = %v", err)
	}
	transport.Close()

	if transport.Ready() {
		t.Errorf("closed transport reports ready")
	}
	if _, err := transport.Query(context.Background(), newQuery(t, 1, "example.com")); !stderrors.Is(err, errors.ErrTransportClosed) {
		t.Errorf("Query() error = %v, want ErrTransportClosed", err)
	}
}

func TestNewDoHTransport_Endpoint(t *testing.T) {
	tests := []struct {
		server   string
		expected string
	}{
		{"cloudflare-dns.com", "doh://cloudflare-dns.com/dns-query"},
		{"https://dns.google/resolve", "doh://dns.google/resolve"},
		{"https://127.0.0.1:8443", "doh://127.0.0.1:8443/dns-query"},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			transport, err := NewDoHTransport(tt.server, nil)
			if err != nil {
				t.Fatalf("NewDoHTransport() error = %v", err)
			}
			if got := transport.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
