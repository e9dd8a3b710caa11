package commands

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dnsprotect/dnsprotect/src/internal/config"
	"github.com/dnsprotect/dnsprotect/src/internal/networking"
)

const (
	colorCyan  = "\033[0;36m"
	colorGreen = "\033[0;32m"
	colorRed   = "\033[0;31m"
	colorReset = "\033[0m"
)

func CreateInterfacesCommand() *InterfacesCommand {
	gc := &InterfacesCommand{
		fs:  flag.NewFlagSet("interfaces", flag.ExitOnError),
		out: os.Stdout,
	}
	return gc
}

type InterfacesCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config
	out io.Writer
}

// interfaceInfo is a printable snapshot of a network interface.
type interfaceInfo struct {
	Index      int
	Name       string
	IsUp       bool
	Redirected bool
	Addresses  []string
}

func (g *InterfacesCommand) Name() string {
	return g.fs.Name()
}

func (g *InterfacesCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}

	if cfg, err := loadConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		g.cfg = cfg
	}

	return nil
}

func (g *InterfacesCommand) Run() error {
	links, err := networking.GetInterfaceList()
	if err != nil {
		return err
	}

	var redirected []string
	if g.cfg.Redirect != nil {
		redirected = g.cfg.Redirect.Interfaces
	}

	infos := make([]interfaceInfo, 0, len(links))
	for _, link := range links {
		info := interfaceInfo{
			Index:      link.Index(),
			Name:       link.Name(),
			IsUp:       link.IsUp(),
			Redirected: slices.Contains(redirected, link.Name()),
		}
		if addrs, err := link.Addrs(); err == nil {
			for _, addr := range addrs {
				info.Addresses = append(info.Addresses, addr.String())
			}
		}
		infos = append(infos, info)
	}

	fmt.Fprint(g.out, formatInterfaces(infos))
	return nil
}

// formatInterfaces renders the interface list for terminal output.
func formatInterfaces(interfaces []interfaceInfo) string {
	var sb strings.Builder

	for _, iface := range interfaces {
		sb.WriteString(fmt.Sprintf("%d. %s%s%s (%sup%s=%s%v%s)",
			iface.Index,
			colorCyan, iface.Name, colorReset,
			colorCyan, colorReset,
			colorForBool(iface.IsUp), iface.IsUp, colorReset))
		if iface.Redirected {
			sb.WriteString(" [redirect]")
		}
		sb.WriteString("\n")

		for _, ip := range iface.Addresses {
			family := "IPv4"
			if strings.Contains(ip, ":") {
				family = "IPv6"
			}
			sb.WriteString(fmt.Sprintf("  IP Address (%s): %s\n", family, ip))
		}
	}

	return sb.String()
}

func colorForBool(value bool) string {
	if value {
		return colorGreen
	}
	return colorRed
}
