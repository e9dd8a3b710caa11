// Package config handles configuration file parsing and validation for dnsprotect.
//
// This package reads TOML configuration files and provides strongly-typed
// structures for accessing configuration data. Defaults are filled in after
// parsing and the whole file is validated at once so every problem is
// reported together.
//
// # Configuration Structure
//
// The configuration file defines:
//   - General settings (listen address and port, SO_REUSEPORT, upstream timeout)
//   - Forward servers, the query method (doh or dot), retries and load balancing
//   - Optional iptables redirect of port 53 to the proxy port
//   - Optional read-only status API
//   - Injections: domain blocklist/allowlist, DNS override, DNSSEC, response cache
//
// # Example Usage
//
// Loading and validating a configuration file:
//
//	cfg, err := config.LoadConfig("/etc/dnsprotect/dnsprotect.toml")
//	if err != nil {
//	    log.Fatalf("%v", err)
//	}
//	if err := cfg.ValidateConfig(); err != nil {
//	    log.Fatalf("%v", err)
//	}
//
// Relative list paths are resolved against the directory of the
// configuration file:
//
//	paths := cfg.ResolvePaths(cfg.Injections.DomainBlocklist.Lists)
//
// The loaded *Config is passed explicitly to every component; the package
// keeps no global configuration.
package config
