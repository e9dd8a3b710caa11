// Package upstreams forwards raw DNS messages to upstream resolvers over
// DNS-over-HTTPS or DNS-over-TLS and spreads queries across servers.
package upstreams

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
)

// Transport sends raw DNS messages to a single upstream server.
type Transport interface {
	// Query sends msg and returns the raw response.
	Query(ctx context.Context, msg []byte) ([]byte, error)
	// Ready reports whether the transport can send immediately.
	Ready() bool
	// Close releases the transport. Later queries fail with errors.ErrTransportClosed.
	Close() error
	// String returns a human-readable representation of the transport.
	String() string
}

// Method selects the transport protocol used for forward servers.
type Method string

const (
	MethodDoH Method = "doh"
	MethodDoT Method = "dot"
)

// ParseMethod converts a configured method name. Matching is case-insensitive.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodDoH, MethodDoT:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownMethod, s)
	}
}

// Options tunes transport construction. Zero values select defaults.
type Options struct {
	// HTTPClient is used by DoH transports.
	HTTPClient *http.Client
	// TLSConfig is used by DoT transports. ServerName defaults to the server host.
	TLSConfig *tls.Config
	// DoTPort overrides the DNS-over-TLS port (default 853).
	DoTPort int
}

// NewTransport creates a transport for server using the given method.
func NewTransport(method Method, server string, opts Options) (Transport, error) {
	switch method {
	case MethodDoH:
		return NewDoHTransport(server, opts.HTTPClient)
	case MethodDoT:
		return NewDoTTransport(server, DoTOptions{Port: opts.DoTPort, TLSConfig: opts.TLSConfig}), nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownMethod, method)
	}
}
