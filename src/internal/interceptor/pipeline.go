package interceptor

import (
	"github.com/dnsprotect/dnsprotect/src/internal/cache"
	"github.com/dnsprotect/dnsprotect/src/internal/config"
	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/dnsprotect/dnsprotect/src/internal/injections"
)

// BuildPipeline creates the injections enabled in cfg. They are registered
// in a fixed order: blocklist, allowlist, save-cache, load-cache,
// dns-override, ensure-dnssec-request, block-unsafe-dnssec-response.
// store must be non-nil when the cache injection is enabled.
func BuildPipeline(cfg *config.Config, store cache.Store) (*injections.Pipeline, error) {
	var list []injections.Injection
	inj := cfg.Injections
	if inj == nil {
		return injections.NewPipeline(), nil
	}

	if inj.DomainBlocklist != nil {
		blocklist, err := injections.NewDomainBlocklist(cfg.ResolvePaths(inj.DomainBlocklist.Lists))
		if err != nil {
			return nil, err
		}
		list = append(list, blocklist)
	}

	if inj.DomainAllowlist != nil {
		allowlist, err := injections.NewDomainAllowlist(cfg.ResolvePaths(inj.DomainAllowlist.Lists))
		if err != nil {
			return nil, err
		}
		list = append(list, allowlist)
	}

	if inj.Cache != nil {
		if store == nil {
			return nil, errors.NewConfigError("cache injection is enabled but no cache store was opened", nil)
		}
		list = append(list,
			injections.NewSaveCache(store, injections.SaveCacheOptions{
				CacheEmptyResults: inj.Cache.CacheEmptyResults,
				EmptyResultsTTL:   inj.Cache.GetEmptyResultsTTL(),
			}),
			injections.NewLoadCache(store),
		)
	}

	if inj.DNSOverride != nil {
		override, err := injections.NewDNSOverride(inj.DNSOverride.GetAddresses(), inj.DNSOverride.TTL)
		if err != nil {
			return nil, err
		}
		list = append(list, override)
	}

	if inj.DNSSEC != nil {
		mode, err := injections.ParseDNSSECMode(inj.DNSSEC.Mode)
		if err != nil {
			return nil, err
		}
		opts := injections.DNSSECOptions{
			Mode:                    mode,
			BlockUnvalidatedDomains: inj.DNSSEC.BlockUnvalidatedDomains,
			LogActions:              inj.DNSSEC.LogActions,
		}
		list = append(list,
			injections.NewEnsureDNSSECRequest(opts),
			injections.NewBlockUnsafeDNSSECResponse(opts),
		)
	}

	return injections.NewPipeline(list...), nil
}
