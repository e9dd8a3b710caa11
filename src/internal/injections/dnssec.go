package injections

import (
	"context"
	"fmt"
	"strings"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/dnsprotect/dnsprotect/src/internal/packet"
)

// DNSSECMode selects how missing authenticated data is handled.
type DNSSECMode string

const (
	// DNSSECModeChange sets the AD flag on outgoing queries.
	DNSSECModeChange DNSSECMode = "change"
	// DNSSECModeBlock drops queries and responses without the AD flag.
	DNSSECModeBlock DNSSECMode = "block"
)

// ParseDNSSECMode converts a configured mode. An empty string selects change mode.
func ParseDNSSECMode(s string) (DNSSECMode, error) {
	switch m := DNSSECMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DNSSECModeChange, nil
	case DNSSECModeChange, DNSSECModeBlock:
		return m, nil
	default:
		return "", errors.NewConfigError(fmt.Sprintf("unknown dnssec mode %q", s), nil)
	}
}

// DNSSECOptions configures both DNSSEC injections.
type DNSSECOptions struct {
	Mode                    DNSSECMode
	BlockUnvalidatedDomains bool
	LogActions              bool
}

// EnsureDNSSECRequest makes sure queries ask for authenticated data.
type EnsureDNSSECRequest struct {
	opts   DNSSECOptions
	logger *log.Logger
}

// NewEnsureDNSSECRequest creates the query side DNSSEC injection.
func NewEnsureDNSSECRequest(opts DNSSECOptions) *EnsureDNSSECRequest {
	if opts.Mode == "" {
		opts.Mode = DNSSECModeChange
	}
	return &EnsureDNSSECRequest{opts: opts, logger: log.New("DNSSEC")}
}

func (e *EnsureDNSSECRequest) Name() string { return "ensure-dnssec-request" }
func (e *EnsureDNSSECRequest) Phase() Phase { return BeforeQuery }

func (e *EnsureDNSSECRequest) NeedsExecution(_ context.Context, query, _ *packet.Packet) (bool, error) {
	return !query.IsReply() && !query.Flags.AuthenticatedData, nil
}

func (e *EnsureDNSSECRequest) Execute(_ context.Context, query, _ *packet.Packet) (Result, error) {
	if e.opts.Mode == DNSSECModeBlock {
		if e.opts.LogActions {
			e.logger.Infof("[%04x] BLOCKED query without AD flag", query.ID)
		}
		return Result{Halt: true}, nil
	}

	if e.opts.LogActions {
		e.logger.Infof("[%04x] CHANGED query to request AD flag", query.ID)
	}
	return Result{Query: query.WithAuthenticatedData(true).Bytes()}, nil
}

// BlockUnsafeDNSSECResponse drops unauthenticated responses in block mode.
type BlockUnsafeDNSSECResponse struct {
	opts   DNSSECOptions
	logger *log.Logger
}

// NewBlockUnsafeDNSSECResponse creates the response side DNSSEC injection.
func NewBlockUnsafeDNSSECResponse(opts DNSSECOptions) *BlockUnsafeDNSSECResponse {
	if opts.Mode == "" {
		opts.Mode = DNSSECModeChange
	}
	return &BlockUnsafeDNSSECResponse{opts: opts, logger: log.New("DNSSEC")}
}

func (b *BlockUnsafeDNSSECResponse) Name() string { return "block-unsafe-dnssec-response" }
func (b *BlockUnsafeDNSSECResponse) Phase() Phase { return BeforeResponse }

func (b *BlockUnsafeDNSSECResponse) NeedsExecution(_ context.Context, _, response *packet.Packet) (bool, error) {
	return response != nil && response.IsReply() && !response.Flags.AuthenticatedData, nil
}

func (b *BlockUnsafeDNSSECResponse) Execute(_ context.Context, _, response *packet.Packet) (Result, error) {
	if b.opts.Mode == DNSSECModeBlock && b.opts.BlockUnvalidatedDomains {
		if b.opts.LogActions {
			b.logger.Infof("[%04x] BLOCKED unvalidated response for %s", response.ID, strings.Join(response.QuestionNames(), ", "))
		}
		return Result{Halt: true}, nil
	}

	if b.opts.LogActions {
		b.logger.Infof("[%04x] OK unvalidated response for %s", response.ID, strings.Join(response.QuestionNames(), ", "))
	}
	return Result{}, nil
}
