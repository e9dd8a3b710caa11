package injections

import (
	"context"

	"github.com/dnsprotect/dnsprotect/src/internal/packet"
)

// Phase is the pipeline stage an injection runs in.
type Phase int

const (
	BeforeQuery Phase = iota
	BeforeResponse
	AfterResponse
)

func (p Phase) String() string {
	switch p {
	case BeforeQuery:
		return "BEFORE_QUERY"
	case BeforeResponse:
		return "BEFORE_RESPONSE"
	case AfterResponse:
		return "AFTER_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of one injection or of a whole phase.
type Result struct {
	// Halt stops the normal forward and reply flow.
	Halt bool
	// Query replaces the query sent upstream when not empty.
	Query []byte
	// Response replaces the response when not empty.
	Response []byte
}

// Injection is a policy step of the pipeline.
// response is nil during BeforeQuery. Implementations must not modify the
// packets they are given.
type Injection interface {
	Name() string
	Phase() Phase
	NeedsExecution(ctx context.Context, query, response *packet.Packet) (bool, error)
	Execute(ctx context.Context, query, response *packet.Packet) (Result, error)
}
