package injections

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/dnsprotect/dnsprotect/src/internal/packet"
)

// DNSOverride answers configured names with a fixed address.
type DNSOverride struct {
	mappers map[string]netip.Addr
	ttl     uint32
	logger  *log.Logger
}

// NewDNSOverride creates an override from name to address mappings.
// ttl is used for answers synthesized when the upstream returned none.
func NewDNSOverride(mappers map[string]string, ttl uint32) (*DNSOverride, error) {
	o := &DNSOverride{
		mappers: make(map[string]netip.Addr, len(mappers)),
		ttl:     ttl,
		logger:  log.New("DNS OVERRIDE"),
	}
	for name, address := range mappers {
		addr, err := netip.ParseAddr(address)
		if err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("invalid override address for %s", name), err)
		}
		o.mappers[packet.NormalizeName(name)] = addr
	}
	return o, nil
}

func (o *DNSOverride) Name() string { return "dns-override" }
func (o *DNSOverride) Phase() Phase { return BeforeResponse }

// Len returns the number of mapped names.
func (o *DNSOverride) Len() int { return len(o.mappers) }

func (o *DNSOverride) match(response *packet.Packet) (packet.Question, netip.Addr, bool) {
	for _, q := range response.Questions {
		if addr, ok := o.mappers[packet.NormalizeName(q.Name)]; ok {
			return q, addr, true
		}
	}
	return packet.Question{}, netip.Addr{}, false
}

func (o *DNSOverride) NeedsExecution(_ context.Context, _, response *packet.Packet) (bool, error) {
	if response == nil || !response.IsReply() || !response.HasQuestions() {
		return false, nil
	}
	_, _, ok := o.match(response)
	return ok, nil
}

// Execute keeps a single answer pointing at the configured address. The
// first answer for the matched name is rewritten; without one an answer is
// built from the question.
func (o *DNSOverride) Execute(_ context.Context, _, response *packet.Packet) (Result, error) {
	q, addr, ok := o.match(response)
	if !ok {
		return Result{}, nil
	}

	out := response.Clone()
	rr := packet.ResourceRecord{Name: q.Name, Class: q.Class, TTL: o.ttl}
	for _, answer := range out.Answers {
		if packet.NormalizeName(answer.Name) == packet.NormalizeName(q.Name) {
			rr = answer
			break
		}
	}
	rr.SetAddress(addr)

	out.Answers = []packet.ResourceRecord{rr}
	out.Flags.ResponseCode = 0
	o.logger.Debugf("[%04x] %s -> %s", response.ID, q.Name, addr)
	return Result{Response: out.Bytes()}, nil
}
