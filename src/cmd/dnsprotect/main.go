package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dnsprotect/dnsprotect/src/internal/commands"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
)

var (
	version = "dev"
	commit  = "n/a"
	date    = "n/a"
)

func main() {
	ctx := &commands.AppContext{}

	// Define flags
	flag.StringVar(&ctx.ConfigPath, "config", "/etc/dnsprotect/dnsprotect.toml", "Path to configuration file")
	flag.BoolVar(&ctx.Verbose, "verbose", false, "Enable debug logging")

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "DNS intercepting proxy\n")
		fmt.Fprintf(os.Stderr, "Version: %s (Commit: %s, Date: %s)\n\n", version, commit, date)
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  service                 Run the UDP interceptor (includes redirect rules and API server)\n")
		fmt.Fprintf(os.Stderr, "  check-config            Validate the configuration and print a summary\n")
		fmt.Fprintf(os.Stderr, "  lookup <domain> [type]  Resolve a name through the forward servers\n")
		fmt.Fprintf(os.Stderr, "  interfaces              Get available interfaces list\n")
		fmt.Fprintf(os.Stderr, "  undo-redirect           Remove DNS redirect rules left behind by the service\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if ctx.Verbose {
		log.SetVerbose(true)
	}

	// Ensure cfg file exists
	if _, err := os.Stat(ctx.ConfigPath); errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Configuration file not found: %s", ctx.ConfigPath)
	}

	cmds := []commands.Runner{
		commands.CreateServiceCommand(),
		commands.CreateCheckConfigCommand(),
		commands.CreateLookupCommand(),
		commands.CreateInterfacesCommand(),
		commands.CreateUndoCommand(),
	}

	args := flag.Args()

	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	subcommand := args[0]
	for _, cmd := range cmds {
		if cmd.Name() == subcommand {
			if err := cmd.Init(args[1:], ctx); err != nil {
				log.Fatalf("Failed to initialize command: %v", err)
			}

			if err := cmd.Run(); err != nil {
				log.Fatalf("Failed to run command: %v", err)
			}

			os.Exit(0)
		}
	}

	log.Fatalf("Unknown subcommand: %s", subcommand)
}
