package injections

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/dnsprotect/dnsprotect/src/internal/packet"
	"github.com/miekg/dns"
)

func packQuery(t *testing.T, id uint16, name string, qtype uint16) []byte {
	t.Helper()

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.Id = id
	b, err := m.Pack()
	if err != nil {
		t.Fatalf("failed to pack query: %v", err)
	}
	return b
}

// packReply answers query with one A record per ip, all with the given TTLs.
func packReply(t *testing.T, query []byte, ttls []uint32, ips ...string) []byte {
	t.Helper()

	req := new(dns.Msg)
	if err := req.Unpack(query); err != nil {
		t.Fatalf("failed to unpack query: %v", err)
	}
	resp := new(dns.Msg)
	resp.SetReply(req)
	for i, ip := range ips {
		resp.Answer = append(resp.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttls[i]},
			A:   net.ParseIP(ip).To4(),
		})
	}
	b, err := resp.Pack()
	if err != nil {
		t.Fatalf("failed to pack reply: %v", err)
	}
	return b
}

func mustParse(t *testing.T, b []byte) *packet.Packet {
	t.Helper()

	p, err := packet.Parse(b)
	if err != nil {
		t.Fatalf("failed to parse packet: %v", err)
	}
	return p
}

// run evaluates a single injection the way the pipeline does.
func run(t *testing.T, inj Injection, query, response []byte) (bool, Result) {
	t.Helper()

	q := mustParse(t, query)
	var r *packet.Packet
	if response != nil {
		r = mustParse(t, response)
	}

	needs, err := inj.NeedsExecution(context.Background(), q, r)
	if err != nil {
		t.Fatalf("NeedsExecution() error = %v", err)
	}
	if !needs {
		return false, Result{}
	}
	res, err := inj.Execute(context.Background(), q, r)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return true, res
}

type fakeInjection struct {
	name     string
	phase    Phase
	needs    bool
	needsErr error
	result   Result
	err      error

	mu    sync.Mutex
	calls int
	seen  [][]byte
}

func (f *fakeInjection) Name() string { return f.name }
func (f *fakeInjection) Phase() Phase { return f.phase }

func (f *fakeInjection) NeedsExecution(_ context.Context, _, _ *packet.Packet) (bool, error) {
	return f.needs, f.needsErr
}

func (f *fakeInjection) Execute(_ context.Context, _, response *packet.Packet) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if response != nil {
		f.seen = append(f.seen, response.Raw())
	}
	return f.result, f.err
}

func (f *fakeInjection) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
