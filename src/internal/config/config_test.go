package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	configFile := filepath.Join(dir, "dnsprotect.toml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return configFile
}

func TestLoadConfig_NonExistentFile(t *testing.T) {
	_, err := LoadConfig("/non/existent/file.toml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	configFile := writeConfig(t, t.TempDir(), `[general
	listen_port = 53`)

	_, err := LoadConfig(configFile)
	if err == nil {
		t.Fatal("Expected error for invalid TOML")
	}
	if !strings.Contains(err.Error(), "line") {
		t.Errorf("Expected error to carry position, got: %v", err)
	}
}

func TestLoadConfig_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "block.txt"), []byte("ads.example.com\n"), 0644); err != nil {
		t.Fatalf("Failed to write list: %v", err)
	}

	configFile := writeConfig(t, tmpDir, `[general]
listen_port = 5353

[forward]
servers = ["dns.google", "cloudflare-dns.com"]
method = "dot"
retries = 3
load_balancing = "round-robin"

[injections.domain_blocklist]
lists = ["block.txt"]

[injections.dns_override.mappers."router.lan"]
address = "192.168.1.1"

[injections.dnssec]
mode = "block"

[injections.cache]
url = "memory://"
cache_empty_results = true
`)

	cfg, err := LoadConfig(configFile)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		t.Fatalf("Expected valid config, got: %v", err)
	}

	if cfg.General.ListenPort != 5353 {
		t.Errorf("Expected listen_port 5353, got %d", cfg.General.ListenPort)
	}
	if cfg.General.ListenAddr != DefaultListenAddr {
		t.Errorf("Expected default listen_addr, got %q", cfg.General.ListenAddr)
	}
	if cfg.Forward.Method != "dot" || cfg.Forward.Retries != 3 || cfg.Forward.LoadBalancing != "round-robin" {
		t.Errorf("Unexpected forward section: %+v", cfg.Forward)
	}
	if got := cfg.Injections.DNSOverride.GetAddresses()["router.lan"]; got != "192.168.1.1" {
		t.Errorf("Expected override address, got %q", got)
	}
	if cfg.Injections.DNSOverride.TTL != DefaultOverrideTTL {
		t.Errorf("Expected default override TTL, got %d", cfg.Injections.DNSOverride.TTL)
	}
	if cfg.Injections.Cache.EmptyResultsTTL != DefaultEmptyResultsTTL {
		t.Errorf("Expected default empty results TTL, got %d", cfg.Injections.Cache.EmptyResultsTTL)
	}
	if cfg.Injections.DomainAllowlist != nil {
		t.Error("Expected allowlist to stay disabled")
	}

	want := filepath.Join(tmpDir, "block.txt")
	if got := cfg.ResolvePaths(cfg.Injections.DomainBlocklist.Lists)[0]; got != want {
		t.Errorf("Expected list path %q, got %q", want, got)
	}
	if cfg.GetConfigPath() != configFile {
		t.Errorf("Expected config path %q, got %q", configFile, cfg.GetConfigPath())
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`[forward]
servers = ["dns.google"]
`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.General.ListenPort != DefaultListenPort {
		t.Errorf("Expected port %d, got %d", DefaultListenPort, cfg.General.ListenPort)
	}
	if cfg.General.GetUpstreamTimeout().Seconds() != DefaultUpstreamTimeoutSec {
		t.Errorf("Unexpected upstream timeout: %v", cfg.General.GetUpstreamTimeout())
	}
	if cfg.General.GetListenAddress() != "0.0.0.0:53" {
		t.Errorf("Unexpected listen address: %s", cfg.General.GetListenAddress())
	}
	if cfg.Forward.Method != DefaultForwardMethod {
		t.Errorf("Expected method %q, got %q", DefaultForwardMethod, cfg.Forward.Method)
	}
	if cfg.Forward.Retries != DefaultForwardRetries {
		t.Errorf("Expected retries %d, got %d", DefaultForwardRetries, cfg.Forward.Retries)
	}
	if cfg.Forward.LoadBalancing != DefaultLoadBalancing {
		t.Errorf("Expected load balancing %q, got %q", DefaultLoadBalancing, cfg.Forward.LoadBalancing)
	}
	if cfg.Injections == nil {
		t.Fatal("Expected injections section to be initialized")
	}
	if cfg.Redirect.IsEnabled() || cfg.API.IsEnabled() {
		t.Error("Expected redirect and api to be disabled")
	}
	if err := cfg.ValidateConfig(); err != nil {
		t.Errorf("Expected valid config, got: %v", err)
	}
}

func TestParseConfig_RedirectDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`[forward]
servers = ["dns.google"]

[redirect]
enable = true
interfaces = ["br0"]

[api]
enable = true
`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Join(cfg.Redirect.Rule, " ") != strings.Join(DefaultRedirectRule, " ") {
		t.Errorf("Expected default redirect rule, got %v", cfg.Redirect.Rule)
	}
	if cfg.API.Listen != DefaultAPIListen {
		t.Errorf("Expected default api listen, got %q", cfg.API.Listen)
	}
}

func TestSerializeConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`[forward]
servers = ["dns.google"]
`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	buf, err := cfg.SerializeConfig()
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"[general]", "listen_port = 53", "dns.google"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected serialized config to contain %q:\n%s", want, out)
		}
	}

	again, err := ParseConfig(buf.Bytes())
	if err != nil {
		t.Fatalf("Failed to parse serialized config: %v", err)
	}
	if again.Forward.Servers[0] != "dns.google" {
		t.Errorf("Unexpected servers after reparse: %v", again.Forward.Servers)
	}
}

func TestResolvePath(t *testing.T) {
	cfg := &Config{_absConfigFilePath: "/etc/dnsprotect/dnsprotect.toml"}

	tests := []struct {
		path string
		want string
	}{
		{"/var/lib/block.txt", "/var/lib/block.txt"},
		{"block.txt", "/etc/dnsprotect/block.txt"},
		{"lists/../allow.txt", "/etc/dnsprotect/allow.txt"},
	}

	for _, tt := range tests {
		if got := cfg.ResolvePath(tt.path); got != tt.want {
			t.Errorf("ResolvePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
