package upstreams

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
)

const (
	// DoH endpoint defaults
	dohDefaultPath = "/dns-query"
	dohQueryParam  = "dns"

	// HTTP client configuration
	dohClientTimeout       = 10 * time.Second // Total timeout for DoH requests
	dohIdleConnTimeout     = 30 * time.Second // How long idle connections are kept
	dohMaxIdleConns        = 10               // Maximum idle connections total
	dohMaxIdleConnsPerHost = 5                // Maximum idle connections per host

	// HTTP content types
	dnsMessageContentType = "application/dns-message"

	// Largest DNS message a response body may carry
	dohMaxResponseSize = 65535
)

// DoHTransport implements Transport using DNS-over-HTTPS GET requests.
type DoHTransport struct {
	server   string
	endpoint *url.URL
	client   *http.Client
	closed   atomic.Bool
}

// NewDoHTransport creates a DNS-over-HTTPS transport.
// server is either a host name, queried at https://<host>/dns-query, or a
// full https URL. A nil client selects a pooled client with TLS 1.2 or newer.
func NewDoHTransport(server string, client *http.Client) (*DoHTransport, error) {
	raw := server
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	endpoint, err := url.Parse(raw)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid DoH server %q", server), err)
	}
	if endpoint.Host == "" {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid DoH server %q: missing host", server), nil)
	}
	if endpoint.Path == "" || endpoint.Path == "/" {
		endpoint.Path = dohDefaultPath
	}

	if client == nil {
		client = &http.Client{
			Timeout: dohClientTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        dohMaxIdleConns,
				IdleConnTimeout:     dohIdleConnTimeout,
				DisableCompression:  true,
				MaxIdleConnsPerHost: dohMaxIdleConnsPerHost,
			},
		}
	}

	return &DoHTransport{
		server:   server,
		endpoint: endpoint,
		client:   client,
	}, nil
}

// Query sends msg as a base64url encoded GET parameter.
func (d *DoHTransport) Query(ctx context.Context, msg []byte) ([]byte, error) {
	if d.closed.Load() {
		return nil, errors.ErrTransportClosed
	}

	u := *d.endpoint
	q := u.Query()
	q.Set(dohQueryParam, base64.RawURLEncoding.EncodeToString(msg))
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.NewUpstreamError("failed to create DoH request", err)
	}
	httpReq.Header.Set("Content-Type", dnsMessageContentType)
	httpReq.Header.Set("Accept", dnsMessageContentType)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, errors.NewUpstreamError(fmt.Sprintf("DoH request to %s failed", d.server), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUpstreamError(fmt.Sprintf("DoH request to %s failed with status: %d", d.server, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, dohMaxResponseSize))
	if err != nil {
		return nil, errors.NewUpstreamError(fmt.Sprintf("failed to read DoH response from %s", d.server), err)
	}
	return body, nil
}

// Ready reports true until the transport is closed. Connections are opened on demand.
func (d *DoHTransport) Ready() bool {
	return !d.closed.Load()
}

// String returns a human-readable representation of the transport.
func (d *DoHTransport) String() string {
	return "doh://" + d.endpoint.Host + d.endpoint.Path
}

// Close closes idle HTTP connections.
func (d *DoHTransport) Close() error {
	d.closed.Store(true)
	d.client.CloseIdleConnections()
	return nil
}
