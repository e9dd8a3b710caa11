package config

const (
	DefaultListenAddr         = "0.0.0.0"
	DefaultListenPort         = 53
	DefaultUpstreamTimeoutSec = 5
	DefaultForwardMethod      = "doh"
	DefaultForwardRetries     = 1
	DefaultLoadBalancing      = "random"
	DefaultAPIListen          = "127.0.0.1:8053"
	DefaultDNSSECMode         = "change"
	DefaultOverrideTTL        = 300
	DefaultEmptyResultsTTL    = 5
	DefaultCacheMaxEntries    = 10000
)

// DefaultRedirectRule is the iptables nat PREROUTING rule spec installed per local address.
var DefaultRedirectRule = []string{
	"-p", "{{proto}}", "-d", "{{addr}}", "--dport", "53",
	"-j", "REDIRECT", "--to-port", "{{port}}",
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	if c.General == nil {
		c.General = &GeneralConfig{}
	}
	if c.General.ListenAddr == "" {
		c.General.ListenAddr = DefaultListenAddr
	}
	if c.General.ListenPort == 0 {
		c.General.ListenPort = DefaultListenPort
	}
	if c.General.UpstreamTimeoutSec == 0 {
		c.General.UpstreamTimeoutSec = DefaultUpstreamTimeoutSec
	}

	if c.Forward != nil {
		if c.Forward.Method == "" {
			c.Forward.Method = DefaultForwardMethod
		}
		if c.Forward.Retries == 0 {
			c.Forward.Retries = DefaultForwardRetries
		}
		if c.Forward.LoadBalancing == "" {
			c.Forward.LoadBalancing = DefaultLoadBalancing
		}
	}

	if c.Redirect != nil && len(c.Redirect.Rule) == 0 {
		c.Redirect.Rule = append([]string(nil), DefaultRedirectRule...)
	}

	if c.API != nil && c.API.Listen == "" {
		c.API.Listen = DefaultAPIListen
	}

	if c.Injections == nil {
		c.Injections = &InjectionsConfig{}
	}
	if o := c.Injections.DNSOverride; o != nil && o.TTL == 0 {
		o.TTL = DefaultOverrideTTL
	}
	if d := c.Injections.DNSSEC; d != nil && d.Mode == "" {
		d.Mode = DefaultDNSSECMode
	}
	if cc := c.Injections.Cache; cc != nil {
		if cc.EmptyResultsTTL == 0 {
			cc.EmptyResultsTTL = DefaultEmptyResultsTTL
		}
		if cc.MaxEntries == 0 {
			cc.MaxEntries = DefaultCacheMaxEntries
		}
	}
}
