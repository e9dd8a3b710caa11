package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dnsprotect/dnsprotect/src/internal/config"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/dnsprotect/dnsprotect/src/internal/retry"
	"github.com/miekg/dns"
)

func CreateLookupCommand() *LookupCommand {
	gc := &LookupCommand{
		fs:  flag.NewFlagSet("lookup", flag.ExitOnError),
		out: os.Stdout,
	}

	gc.fs.StringVar(&gc.Type, "type", "A", "Record type to query")
	gc.fs.BoolVar(&gc.DNSSEC, "dnssec", false, "Set the DO bit on the query")

	return gc
}

// LookupCommand resolves a name through the configured forward servers,
// bypassing the listener and every injection.
type LookupCommand struct {
	fs     *flag.FlagSet
	ctx    *AppContext
	cfg    *config.Config
	out    io.Writer
	Type   string
	DNSSEC bool
	domain string
}

func (g *LookupCommand) Name() string {
	return g.fs.Name()
}

func (g *LookupCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}

	switch g.fs.NArg() {
	case 2:
		g.Type = g.fs.Arg(1)
		fallthrough
	case 1:
		g.domain = g.fs.Arg(0)
	default:
		return fmt.Errorf("usage: lookup [-dnssec] <domain> [type]")
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		g.cfg = cfg
	}

	return nil
}

func (g *LookupCommand) Run() error {
	query, err := buildLookupQuery(g.domain, g.Type, g.DNSSEC)
	if err != nil {
		return err
	}

	cluster, err := newCluster(g.cfg)
	if err != nil {
		return err
	}
	defer cluster.Close()

	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.General.GetUpstreamTimeout())
	defer cancel()

	resp, err := retry.Do(ctx, g.cfg.Forward.Retries, func(ctx context.Context) ([]byte, error) {
		return cluster.Query(ctx, query)
	}, func(attempt int, err error) {
		log.Warnf("Lookup failed, retrying... (attempt %d: %v)", attempt, err)
	})
	if err != nil {
		return fmt.Errorf("lookup failed: %v", err)
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(resp); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	fmt.Fprintln(g.out, msg.String())
	return nil
}

// buildLookupQuery packs a single-question recursive query.
func buildLookupQuery(domain, qtype string, dnssec bool) ([]byte, error) {
	t, ok := dns.StringToType[strings.ToUpper(qtype)]
	if !ok {
		return nil, fmt.Errorf("unknown record type %q", qtype)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), t)
	msg.RecursionDesired = true
	if dnssec {
		msg.SetEdns0(dns.DefaultMsgSize, true)
	}

	return msg.Pack()
}
