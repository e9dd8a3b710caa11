package config

import (
	"net"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	// General holds listener settings.
	General *GeneralConfig `toml:"general" json:"general"`
	// Forward describes the upstream servers queries are forwarded to.
	Forward *ForwardConfig `toml:"forward" json:"forward"`
	// Redirect optionally redirects port 53 traffic to the proxy with iptables.
	Redirect *RedirectConfig `toml:"redirect" json:"redirect,omitempty"`
	// API enables the read-only status API.
	API *APIConfig `toml:"api" json:"api,omitempty"`
	// Injections enables policy steps. A missing section disables the injection.
	Injections *InjectionsConfig `toml:"injections" json:"injections"`

	_absConfigFilePath string
}

type GeneralConfig struct {
	// ListenAddr is the UDP listen address (default: 0.0.0.0).
	ListenAddr string `toml:"listen_addr" json:"listen_addr" validate:"omitempty,ip"`
	// ListenPort is the UDP listen port (default: 53).
	ListenPort int `toml:"listen_port" json:"listen_port" validate:"min=1,max=65535"`
	// ReusePort sets SO_REUSEPORT so several processes can share the port.
	ReusePort bool `toml:"reuse_port" json:"reuse_port"`
	// UpstreamTimeoutSec bounds a forwarded query including retries (default: 5).
	UpstreamTimeoutSec int `toml:"upstream_timeout_sec" json:"upstream_timeout_sec" validate:"min=1,max=60"`
}

type ForwardConfig struct {
	// Servers are DoH hosts or URLs, or DoT hosts.
	Servers []string `toml:"servers" json:"servers" validate:"required,min=1,dive,required"`
	// Method is doh or dot (default: doh).
	Method string `toml:"method" json:"method" validate:"forward_method"`
	// Retries is the number of attempts per query (default: 1).
	Retries int `toml:"retries" json:"retries" validate:"min=1,max=10"`
	// LoadBalancing is random or round-robin (default: random).
	LoadBalancing string `toml:"load_balancing" json:"load_balancing" validate:"lb_strategy"`
}

type RedirectConfig struct {
	// Enable installs the REDIRECT rules on start and removes them on stop.
	Enable bool `toml:"enable" json:"enable"`
	// Interfaces whose local addresses receive the redirect.
	Interfaces []string `toml:"interfaces" json:"interfaces" validate:"dive,required"`
	// Rule is the iptables rule spec. Available variables: {{proto}}, {{addr}}, {{port}}.
	Rule []string `toml:"rule" json:"rule"`
}

type APIConfig struct {
	// Enable starts the status API.
	Enable bool `toml:"enable" json:"enable"`
	// Listen is the API listen address (default: 127.0.0.1:8053).
	Listen string `toml:"listen" json:"listen" validate:"hostport_or_empty"`
}

type InjectionsConfig struct {
	DomainBlocklist *DomainListConfig  `toml:"domain_blocklist" json:"domain_blocklist,omitempty"`
	DomainAllowlist *DomainListConfig  `toml:"domain_allowlist" json:"domain_allowlist,omitempty"`
	DNSOverride     *DNSOverrideConfig `toml:"dns_override" json:"dns_override,omitempty"`
	DNSSEC          *DNSSECConfig      `toml:"dnssec" json:"dnssec,omitempty"`
	Cache           *CacheConfig       `toml:"cache" json:"cache,omitempty"`
}

type DomainListConfig struct {
	// Lists are files with whitespace separated domain names.
	Lists []string `toml:"lists" json:"lists" validate:"required,min=1,dive,required"`
}

type DNSOverrideConfig struct {
	// TTL is used for answers built when the upstream returned none (default: 300).
	TTL uint32 `toml:"ttl" json:"ttl"`
	// Mappers maps domain names to addresses.
	Mappers map[string]DNSMapper `toml:"mappers" json:"mappers" validate:"required,min=1,dive"`
}

type DNSMapper struct {
	Address string `toml:"address" json:"address" validate:"required,ip"`
}

type DNSSECConfig struct {
	// Mode is change or block (default: change).
	Mode string `toml:"mode" json:"mode" validate:"dnssec_mode"`
	// BlockUnvalidatedDomains drops responses without the AD flag in block mode.
	BlockUnvalidatedDomains bool `toml:"block_unvalidated_domains" json:"block_unvalidated_domains"`
	// LogActions logs every changed or blocked message.
	LogActions bool `toml:"log_actions" json:"log_actions"`
}

type CacheConfig struct {
	// URL selects the store: redis://, rediss:// or memory://.
	URL string `toml:"url" json:"url" validate:"required,cache_url"`
	// CacheEmptyResults also caches responses without answers.
	CacheEmptyResults bool `toml:"cache_empty_results" json:"cache_empty_results"`
	// EmptyResultsTTL is the TTL in seconds for responses without answers (default: 5).
	EmptyResultsTTL int `toml:"empty_results_ttl" json:"empty_results_ttl" validate:"min=1"`
	// MaxEntries bounds the memory store (default: 10000).
	MaxEntries int `toml:"max_entries" json:"max_entries" validate:"min=1"`
}

// GetConfigDir returns the directory of the loaded configuration file.
func (c *Config) GetConfigDir() string {
	return filepath.Dir(c._absConfigFilePath)
}

// GetConfigPath returns the absolute path of the loaded configuration file.
func (c *Config) GetConfigPath() string {
	return c._absConfigFilePath
}

// ResolvePath returns path if it is absolute, otherwise joins it with the config directory.
func (c *Config) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(filepath.Join(c.GetConfigDir(), path))
}

// ResolvePaths applies ResolvePath to every path.
func (c *Config) ResolvePaths(paths []string) []string {
	resolved := make([]string, len(paths))
	for i, path := range paths {
		resolved[i] = c.ResolvePath(path)
	}
	return resolved
}

// GetListenAddress returns the UDP listen address as host:port.
func (g *GeneralConfig) GetListenAddress() string {
	return net.JoinHostPort(g.ListenAddr, strconv.Itoa(g.ListenPort))
}

// GetUpstreamTimeout returns the per-query upstream deadline.
func (g *GeneralConfig) GetUpstreamTimeout() time.Duration {
	return time.Duration(g.UpstreamTimeoutSec) * time.Second
}

// IsEnabled reports whether the redirect section is present and enabled.
func (r *RedirectConfig) IsEnabled() bool {
	return r != nil && r.Enable
}

// IsEnabled reports whether the API section is present and enabled.
func (a *APIConfig) IsEnabled() bool {
	return a != nil && a.Enable
}

// GetEmptyResultsTTL returns the TTL used for responses without answers.
func (c *CacheConfig) GetEmptyResultsTTL() time.Duration {
	return time.Duration(c.EmptyResultsTTL) * time.Second
}

// GetAddresses returns the override mappings as name to address.
func (o *DNSOverrideConfig) GetAddresses() map[string]string {
	addresses := make(map[string]string, len(o.Mappers))
	for name, mapper := range o.Mappers {
		addresses[name] = mapper.Address
	}
	return addresses
}
