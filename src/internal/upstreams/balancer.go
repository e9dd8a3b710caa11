package upstreams

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
)

// Strategy selects how a Balancer picks a transport.
type Strategy string

const (
	StrategyRandom     Strategy = "random"
	StrategyRoundRobin Strategy = "round-robin"
)

// ParseStrategy normalizes a configured strategy name. Both "round-robin"
// and "ROUND_ROBIN" spellings are accepted.
func ParseStrategy(s string) (Strategy, error) {
	normalized := Strategy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	switch normalized {
	case StrategyRandom, StrategyRoundRobin:
		return normalized, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownStrategy, s)
	}
}

// Balancer picks an index into a list of transports.
type Balancer struct {
	strategy Strategy
	next     atomic.Uint64
}

// NewBalancer creates a balancer. The strategy is checked on every selection.
func NewBalancer(strategy Strategy) *Balancer {
	return &Balancer{strategy: strategy}
}

// Strategy returns the configured strategy.
func (b *Balancer) Strategy() Strategy {
	return b.strategy
}

// Next returns the index of the transport to use out of n.
// Round robin advances one shared counter, so consecutive calls from a fresh
// balancer return 0, 1, ..., n-1, 0, ...
func (b *Balancer) Next(n int) (int, error) {
	if n <= 0 {
		return 0, errors.NewUpstreamError("no forward servers configured", nil)
	}

	switch b.strategy {
	case StrategyRandom:
		return rand.IntN(n), nil
	case StrategyRoundRobin:
		return int((b.next.Add(1) - 1) % uint64(n)), nil
	default:
		return 0, fmt.Errorf("%w: %q", errors.ErrUnknownStrategy, b.strategy)
	}
}
