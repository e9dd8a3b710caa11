package commands

import (
	"flag"

	"github.com/dnsprotect/dnsprotect/src/internal/config"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/dnsprotect/dnsprotect/src/internal/networking"
)

func CreateUndoCommand() *UndoCommand {
	gc := &UndoCommand{
		fs: flag.NewFlagSet("undo-redirect", flag.ExitOnError),
	}
	return gc
}

type UndoCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config
}

func (g *UndoCommand) Name() string {
	return g.fs.Name()
}

func (g *UndoCommand) Init(args []string, ctx *AppContext) error {
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

func (g *UndoCommand) Run() error {
	log.Infof("Removing DNS redirect rules (chain %s)...", networking.RedirectChainName)

	redirector, err := networking.NewRedirector(redirectOptions(g.cfg))
	if err != nil {
		log.Errorf("Failed to initialize iptables: %v", err)
		return err
	}

	if err := redirector.Undo(); err != nil {
		log.Errorf("Failed to remove DNS redirect rules: %v", err)
		return err
	}

	log.Infof("Undo redirect completed successfully")
	return nil
}
