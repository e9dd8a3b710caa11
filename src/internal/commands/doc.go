// Package commands implements CLI command handlers for dnsprotect.
//
// Each command implements the Runner interface:
//   - Init(): Parse arguments and load configuration
//   - Run(): Execute the command
//   - Name(): Return command name for routing
//
// # Available Commands
//
//   - service: Run the DNS interceptor (plus the status API and port 53 redirect when enabled)
//   - check-config: Load and validate the configuration and print a summary
//   - lookup: Resolve a name through the configured forward servers, bypassing injections
//   - interfaces: List network interfaces and their addresses
//   - undo-redirect: Remove iptables redirect rules left behind by the service
//
// # Example Usage
//
//	cmd := commands.CreateLookupCommand()
//	ctx := &commands.AppContext{ConfigPath: "/etc/dnsprotect/dnsprotect.toml"}
//	if err := cmd.Init([]string{"example.com", "AAAA"}, ctx); err != nil {
//	    log.Fatalf("%v", err)
//	}
//	if err := cmd.Run(); err != nil {
//	    log.Fatalf("%v", err)
//	}
package commands
