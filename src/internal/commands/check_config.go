package commands

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dnsprotect/dnsprotect/src/internal/config"
	"github.com/dnsprotect/dnsprotect/src/internal/lists"
)

func CreateCheckConfigCommand() *CheckConfigCommand {
	gc := &CheckConfigCommand{
		fs:  flag.NewFlagSet("check-config", flag.ExitOnError),
		out: os.Stdout,
	}

	gc.fs.BoolVar(&gc.Print, "print", false, "Print the configuration with defaults applied")

	return gc
}

type CheckConfigCommand struct {
	fs    *flag.FlagSet
	ctx   *AppContext
	cfg   *config.Config
	out   io.Writer
	Print bool
}

func (g *CheckConfigCommand) Name() string {
	return g.fs.Name()
}

func (g *CheckConfigCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		g.cfg = cfg
	}

	return nil
}

func (g *CheckConfigCommand) Run() error {
	cfg := g.cfg

	fmt.Fprintf(g.out, "Configuration %s is valid\n", cfg.GetConfigPath())
	g.field("Listen", "%s (udp)", cfg.General.GetListenAddress())
	g.field("Forward", "%s x%d [%s] %v",
		cfg.Forward.Method, cfg.Forward.Retries, cfg.Forward.LoadBalancing, cfg.Forward.Servers)

	if cfg.Redirect.IsEnabled() {
		g.field("Redirect", "%v", cfg.Redirect.Interfaces)
	}
	if cfg.API.IsEnabled() {
		g.field("API", "%s", cfg.API.Listen)
	}

	inj := cfg.Injections
	if inj.DomainBlocklist != nil {
		if err := g.printList("Blocklist", inj.DomainBlocklist); err != nil {
			return err
		}
	}
	if inj.DomainAllowlist != nil {
		if err := g.printList("Allowlist", inj.DomainAllowlist); err != nil {
			return err
		}
	}
	if inj.Cache != nil {
		g.field("Cache", "%s", inj.Cache.URL)
	}
	if inj.DNSOverride != nil {
		g.field("Override", "%d domain(s), ttl %ds", len(inj.DNSOverride.Mappers), inj.DNSOverride.TTL)
	}
	if inj.DNSSEC != nil {
		g.field("DNSSEC", "mode %s", inj.DNSSEC.Mode)
	}

	if g.Print {
		buf, err := cfg.SerializeConfig()
		if err != nil {
			return fmt.Errorf("failed to serialize configuration: %v", err)
		}
		fmt.Fprintf(g.out, "\n%s", buf.String())
	}

	return nil
}

func (g *CheckConfigCommand) printList(label string, list *config.DomainListConfig) error {
	set, err := lists.Load(g.cfg.ResolvePaths(list.Lists))
	if err != nil {
		return fmt.Errorf("failed to load %s: %v", label, err)
	}
	g.field(label, "%d domain(s) from %d file(s)", set.Len(), len(list.Lists))
	return nil
}

func (g *CheckConfigCommand) field(label, format string, args ...interface{}) {
	fmt.Fprintf(g.out, "  %-11s%s\n", label+":", fmt.Sprintf(format, args...))
}
