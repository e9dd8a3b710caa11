package networking

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"sync"

	"github.com/coreos/go-iptables/iptables"
	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/valyala/fasttemplate"
)

const (
	// RedirectChainName is the nat chain holding the REDIRECT rules.
	RedirectChainName = "DNSPROTECT_DNS"

	natTable        = "nat"
	preroutingChain = "PREROUTING"

	TemplateProto = "proto"
	TemplateAddr  = "addr"
	TemplatePort  = "port"
)

var redirectProtocols = []string{"udp", "tcp"}

// IPTables is the subset of *iptables.IPTables used by the redirector.
type IPTables interface {
	Proto() iptables.Protocol
	NewChain(table, chain string) error
	ClearChain(table, chain string) error
	DeleteChain(table, chain string) error
	ChainExists(table, chain string) (bool, error)
	AppendUnique(table, chain string, rulespec ...string) error
	InsertUnique(table, chain string, pos int, rulespec ...string) error
	DeleteIfExists(table, chain string, rulespec ...string) error
}

// AddressLister returns the local addresses of the named interfaces.
type AddressLister func(interfaces []string) ([]netip.Addr, error)

// RedirectOptions configures a Redirector.
type RedirectOptions struct {
	// Interfaces whose addresses receive the redirect.
	Interfaces []string
	// Rule is the rule spec template; see ExpandRule.
	Rule []string
	// Port is the proxy listen port.
	Port int
}

// Redirector installs iptables nat REDIRECT rules sending port 53 traffic
// addressed to local interfaces to the proxy port.
type Redirector struct {
	mu      sync.Mutex
	opts    RedirectOptions
	ipt4    IPTables
	ipt6    IPTables
	lister  AddressLister
	enabled bool
}

// NewRedirector creates a redirector using the system iptables binaries.
func NewRedirector(opts RedirectOptions) (*Redirector, error) {
	ipt4, err := iptables.NewWithProtocol(iptables.ProtocolIPv4)
	if err != nil {
		return nil, errors.NewNetworkError("failed to create iptables (IPv4)", err)
	}

	var ipt6 IPTables
	if v6, err := iptables.NewWithProtocol(iptables.ProtocolIPv6); err != nil {
		// IPv6 might not be available, that's okay
		log.Debugf("IPv6 iptables not available: %v", err)
	} else {
		ipt6 = v6
	}

	return newRedirector(opts, ipt4, ipt6, LocalAddresses), nil
}

func newRedirector(opts RedirectOptions, ipt4, ipt6 IPTables, lister AddressLister) *Redirector {
	return &Redirector{opts: opts, ipt4: ipt4, ipt6: ipt6, lister: lister}
}

// ExpandRule substitutes {{proto}}, {{addr}} and {{port}} in every rule part.
func ExpandRule(rule []string, proto string, addr netip.Addr, port int) []string {
	vars := map[string]interface{}{
		TemplateProto: proto,
		TemplateAddr:  addr.String(),
		TemplatePort:  strconv.Itoa(port),
	}

	expanded := make([]string, len(rule))
	for i, part := range rule {
		if !strings.Contains(part, "{{") {
			expanded[i] = part
			continue
		}
		expanded[i] = fasttemplate.New(part, "{{", "}}").ExecuteString(vars)
	}
	return expanded
}

// Enable installs the redirect rules, replacing any left from a previous run.
func (r *Redirector) Enable() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	addresses, err := r.lister(r.opts.Interfaces)
	if err != nil {
		return errors.NewNetworkError("failed to get local addresses", err)
	}
	if len(addresses) == 0 {
		return errors.NewNetworkError(fmt.Sprintf("no addresses found on interfaces %v", r.opts.Interfaces), nil)
	}

	if err := r.disable(); err != nil {
		return err
	}

	for _, ipt := range r.tables() {
		if err := r.createChainAndRules(ipt, addresses); err != nil {
			_ = r.disable()
			return errors.NewNetworkError(fmt.Sprintf("failed to create %s rules", protoName(ipt)), err)
		}
	}

	r.enabled = true
	log.Infof("DNS redirection enabled (port 53 -> %d) on %s", r.opts.Port, strings.Join(r.opts.Interfaces, ", "))
	return nil
}

// Disable removes the rules installed by Enable.
func (r *Redirector) Disable() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled {
		return nil
	}
	if err := r.disable(); err != nil {
		return err
	}

	r.enabled = false
	log.Infof("DNS redirection disabled")
	return nil
}

// Undo removes the redirect chain regardless of who installed it.
func (r *Redirector) Undo() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enabled = false
	return r.disable()
}

// IsEnabled reports whether the redirect chain is linked from PREROUTING.
func (r *Redirector) IsEnabled() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ipt := range r.tables() {
		exists, err := ipt.ChainExists(natTable, RedirectChainName)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

func (r *Redirector) tables() []IPTables {
	var tables []IPTables
	if r.ipt4 != nil {
		tables = append(tables, r.ipt4)
	}
	if r.ipt6 != nil {
		tables = append(tables, r.ipt6)
	}
	return tables
}

func (r *Redirector) createChainAndRules(ipt IPTables, addresses []netip.Addr) error {
	if err := ipt.NewChain(natTable, RedirectChainName); err != nil {
		// Check if chain already exists
		if eerr, ok := err.(*iptables.Error); !(ok && eerr.ExitStatus() == 1) {
			return fmt.Errorf("failed to create chain: %w", err)
		}
	}

	isIPv6 := ipt.Proto() == iptables.ProtocolIPv6
	for _, addr := range addresses {
		if addr.Is6() != isIPv6 {
			continue
		}
		for _, proto := range redirectProtocols {
			rule := ExpandRule(r.opts.Rule, proto, addr, r.opts.Port)
			log.Debugf("Adding iptables rule [%s]", strings.Join(rule, " "))
			if err := ipt.AppendUnique(natTable, RedirectChainName, rule...); err != nil {
				return fmt.Errorf("failed to add %s rule: %w", proto, err)
			}
		}
	}

	if err := ipt.InsertUnique(natTable, preroutingChain, 1, "-j", RedirectChainName); err != nil {
		return fmt.Errorf("failed to link chain: %w", err)
	}
	return nil
}

func (r *Redirector) disable() error {
	var errs []error
	for _, ipt := range r.tables() {
		if err := deleteChainAndRules(ipt); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", protoName(ipt), err))
		}
	}
	if len(errs) > 0 {
		return errors.NewNetworkError(fmt.Sprintf("errors during cleanup: %v", errs), nil)
	}
	return nil
}

func deleteChainAndRules(ipt IPTables) error {
	exists, err := ipt.ChainExists(natTable, RedirectChainName)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := ipt.DeleteIfExists(natTable, preroutingChain, "-j", RedirectChainName); err != nil {
		log.Debugf("Failed to unlink chain: %v", err)
	}
	if err := ipt.ClearChain(natTable, RedirectChainName); err != nil {
		return fmt.Errorf("failed to clear chain: %w", err)
	}
	if err := ipt.DeleteChain(natTable, RedirectChainName); err != nil {
		return fmt.Errorf("failed to delete chain: %w", err)
	}
	return nil
}

func protoName(ipt IPTables) string {
	if ipt.Proto() == iptables.ProtocolIPv6 {
		return "IPv6"
	}
	return "IPv4"
}
