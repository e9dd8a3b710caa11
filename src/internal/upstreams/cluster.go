package upstreams

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/dnsprotect/dnsprotect/src/internal/log"
)

// ForwardOptions describes the forward servers of a cluster.
type ForwardOptions struct {
	Servers       []string
	Method        Method
	LoadBalancing Strategy
	Transport     Options
}

// TransportStatus is a snapshot of one transport for status reporting.
type TransportStatus struct {
	Server string `json:"server"`
	Ready  bool   `json:"ready"`
	State  string `json:"state,omitempty"`
}

// Cluster holds one transport per forward server and delegates each query
// to the transport picked by its balancer.
type Cluster struct {
	transports []Transport
	balancer   *Balancer
}

// NewCluster creates a cluster over existing transports.
func NewCluster(transports []Transport, balancer *Balancer) *Cluster {
	return &Cluster{transports: transports, balancer: balancer}
}

// NewClusterFromOptions creates one transport per configured server.
func NewClusterFromOptions(opts ForwardOptions) (*Cluster, error) {
	transports := make([]Transport, 0, len(opts.Servers))
	for _, server := range opts.Servers {
		t, err := NewTransport(opts.Method, server, opts.Transport)
		if err != nil {
			for _, created := range transports {
				created.Close()
			}
			return nil, fmt.Errorf("failed to create transport for %q: %w", server, err)
		}
		transports = append(transports, t)
	}
	return NewCluster(transports, NewBalancer(opts.LoadBalancing)), nil
}

// Query sends msg through the transport selected by the balancer.
func (c *Cluster) Query(ctx context.Context, msg []byte) ([]byte, error) {
	i, err := c.balancer.Next(len(c.transports))
	if err != nil {
		return nil, err
	}
	return c.transports[i].Query(ctx, msg)
}

// Connect establishes persistent connections of transports that keep one.
// Failures are logged; those transports retry on their next query.
func (c *Cluster) Connect(ctx context.Context) {
	for _, t := range c.transports {
		dot, ok := t.(*DoTTransport)
		if !ok {
			continue
		}
		if err := dot.Connect(ctx); err != nil {
			log.Warnf("Failed to connect to %s: %v", dot, err)
		}
	}
}

// Status returns the readiness of every transport.
func (c *Cluster) Status() []TransportStatus {
	statuses := make([]TransportStatus, 0, len(c.transports))
	for _, t := range c.transports {
		status := TransportStatus{Server: t.String(), Ready: t.Ready()}
		if dot, ok := t.(*DoTTransport); ok {
			status.State = dot.State().String()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// String returns a human-readable representation of all transports.
func (c *Cluster) String() string {
	parts := make([]string, 0, len(c.transports))
	for _, t := range c.transports {
		parts = append(parts, t.String())
	}
	return fmt.Sprintf("%s [%s]", c.balancer.Strategy(), strings.Join(parts, ", "))
}

// Close closes all transports.
func (c *Cluster) Close() error {
	var errs []error
	for _, t := range c.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
