package upstreams

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
)

type fakeTransport struct {
	name   string
	calls  int
	closed bool
}

func (f *fakeTransport) Query(ctx context.Context, msg []byte) ([]byte, error) {
	f.calls++
	return []byte(f.name), nil
}

func (f *fakeTransport) Ready() bool    { return !f.closed }
func (f *fakeTransport) String() string { return f.name }

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestCluster_RoundRobinQuery(t *testing.T) {
	a, b, c := &fakeTransport{name: "A"}, &fakeTransport{name: "B"}, &fakeTransport{name: "C"}
	cluster := NewCluster([]Transport{a, b, c}, NewBalancer(StrategyRoundRobin))

	var order string
	for i := 0; i < 6; i++ {
		resp, err := cluster.Query(context.Background(), []byte{0, 1})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		order += string(resp)
	}

	if order != "ABCABC" {
		t.Errorf("selection order = %s, want ABCABC", order)
	}
	if a.calls != 2 || b.calls != 2 || c.calls != 2 {
		t.Errorf("unexpected call counts %d/%d/%d", a.calls, b.calls, c.calls)
	}
}

func TestCluster_UnknownStrategyFailsAtSelection(t *testing.T) {
	cluster := NewCluster([]Transport{&fakeTransport{name: "A"}}, NewBalancer("fastest"))

	if _, err := cluster.Query(context.Background(), []byte{0, 1}); !stderrors.Is(err, errors.ErrUnknownStrategy) {
		t.Errorf("Query() error = %v, want ErrUnknownStrategy", err)
	}
}

func TestCluster_StatusAndClose(t *testing.T) {
	a := &fakeTransport{name: "A"}
	dot := NewDoTTransport("127.0.0.1", DoTOptions{})
	cluster := NewCluster([]Transport{a, dot}, NewBalancer(StrategyRandom))

	statuses := cluster.Status()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Ready || statuses[0].State != "" {
		t.Errorf("unexpected status %+v", statuses[0])
	}
	if statuses[1].Ready || statuses[1].State != "disconnected" || statuses[1].Server != "dot://127.0.0.1:853" {
		t.Errorf("unexpected DoT status %+v", statuses[1])
	}

	if err := cluster.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !a.closed || dot.State() != StateClosed {
		t.Errorf("expected every transport to be closed")
	}
}

func TestNewClusterFromOptions(t *testing.T) {
	cluster, err := NewClusterFromOptions(ForwardOptions{
		Servers:       []string{"cloudflare-dns.com", "dns.google"},
		Method:        MethodDoH,
		LoadBalancing: StrategyRoundRobin,
	})
	if err != nil {
		t.Fatalf("NewClusterFromOptions() error = %v", err)
	}
	defer cluster.Close()

	expected := "round-robin [doh://cloudflare-dns.com/dns-query, doh://dns.google/dns-query]"
	if got := cluster.String(); got != expected {
		t.Errorf("String() = %q, want %q", got, expected)
	}

	if _, err := NewClusterFromOptions(ForwardOptions{Servers: []string{"x"}, Method: "udp"}); !stderrors.Is(err, errors.ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}
