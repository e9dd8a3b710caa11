package commands

import (
	"fmt"

	"github.com/dnsprotect/dnsprotect/src/internal/cache"
	"github.com/dnsprotect/dnsprotect/src/internal/config"
	"github.com/dnsprotect/dnsprotect/src/internal/networking"
	"github.com/dnsprotect/dnsprotect/src/internal/upstreams"
)

type Runner interface {
	Init(args []string, globalArgs *AppContext) error
	Run() error
	Name() string
}

type AppContext struct {
	ConfigPath string
	Verbose    bool
}

// loadConfigOrFail loads configuration from file without validating it.
func loadConfigOrFail(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %v", err)
	}
	return cfg, nil
}

// loadAndValidateConfigOrFail loads configuration from file and validates it.
func loadAndValidateConfigOrFail(configPath string) (*config.Config, error) {
	cfg, err := loadConfigOrFail(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	return cfg, nil
}

// newCluster creates the forward cluster described by the [forward] section.
func newCluster(cfg *config.Config) (*upstreams.Cluster, error) {
	method, err := upstreams.ParseMethod(cfg.Forward.Method)
	if err != nil {
		return nil, err
	}
	strategy, err := upstreams.ParseStrategy(cfg.Forward.LoadBalancing)
	if err != nil {
		return nil, err
	}

	return upstreams.NewClusterFromOptions(upstreams.ForwardOptions{
		Servers:       cfg.Forward.Servers,
		Method:        method,
		LoadBalancing: strategy,
	})
}

// openStore opens the cache store, or returns nil when caching is disabled.
func openStore(cfg *config.Config) (cache.Store, error) {
	if cfg.Injections == nil || cfg.Injections.Cache == nil {
		return nil, nil
	}
	return cache.Open(cfg.Injections.Cache.URL, cfg.Injections.Cache.MaxEntries)
}

// redirectOptions builds redirector options from the [redirect] section.
func redirectOptions(cfg *config.Config) networking.RedirectOptions {
	opts := networking.RedirectOptions{
		Rule: config.DefaultRedirectRule,
		Port: cfg.General.ListenPort,
	}
	if cfg.Redirect != nil {
		opts.Interfaces = cfg.Redirect.Interfaces
		if len(cfg.Redirect.Rule) > 0 {
			opts.Rule = cfg.Redirect.Rule
		}
	}
	return opts
}
