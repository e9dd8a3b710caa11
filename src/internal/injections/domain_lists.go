package injections

import (
	"context"
	"strings"

	"github.com/dnsprotect/dnsprotect/src/internal/lists"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/dnsprotect/dnsprotect/src/internal/packet"
)

// DomainBlocklist halts queries for any listed name.
type DomainBlocklist struct {
	domains *lists.DomainSet
	logger  *log.Logger
}

// NewDomainBlocklist loads the given list files.
func NewDomainBlocklist(paths []string) (*DomainBlocklist, error) {
	domains, err := lists.Load(paths)
	if err != nil {
		return nil, err
	}
	b := NewDomainBlocklistFromSet(domains)
	b.logger.Infof("Total of %d blocked domains loaded", domains.Len())
	return b, nil
}

// NewDomainBlocklistFromSet creates a blocklist over an existing set.
func NewDomainBlocklistFromSet(domains *lists.DomainSet) *DomainBlocklist {
	return &DomainBlocklist{domains: domains, logger: log.New("BLOCKLIST")}
}

func (b *DomainBlocklist) Name() string { return "domain-blocklist" }
func (b *DomainBlocklist) Phase() Phase { return BeforeQuery }

// Len returns the number of listed names.
func (b *DomainBlocklist) Len() int { return b.domains.Len() }

func (b *DomainBlocklist) NeedsExecution(_ context.Context, query, _ *packet.Packet) (bool, error) {
	return !query.IsReply() && b.domains.ContainsAny(query.QuestionNames()), nil
}

func (b *DomainBlocklist) Execute(_ context.Context, query, _ *packet.Packet) (Result, error) {
	b.logger.Debugf("[%04x] Blocked %s", query.ID, strings.Join(query.QuestionNames(), ", "))
	return Result{Halt: true}, nil
}

// DomainAllowlist halts queries unless a question name is listed.
// Queries without questions are halted too.
type DomainAllowlist struct {
	domains *lists.DomainSet
	logger  *log.Logger
}

// NewDomainAllowlist loads the given list files.
func NewDomainAllowlist(paths []string) (*DomainAllowlist, error) {
	domains, err := lists.Load(paths)
	if err != nil {
		return nil, err
	}
	a := NewDomainAllowlistFromSet(domains)
	a.logger.Infof("Total of %d allowed domains loaded", domains.Len())
	return a, nil
}

// NewDomainAllowlistFromSet creates an allowlist over an existing set.
func NewDomainAllowlistFromSet(domains *lists.DomainSet) *DomainAllowlist {
	return &DomainAllowlist{domains: domains, logger: log.New("ALLOWLIST")}
}

func (a *DomainAllowlist) Name() string { return "domain-allowlist" }
func (a *DomainAllowlist) Phase() Phase { return BeforeQuery }

// Len returns the number of listed names.
func (a *DomainAllowlist) Len() int { return a.domains.Len() }

func (a *DomainAllowlist) NeedsExecution(_ context.Context, query, _ *packet.Packet) (bool, error) {
	return !query.IsReply() && !a.domains.ContainsAny(query.QuestionNames()), nil
}

func (a *DomainAllowlist) Execute(_ context.Context, query, _ *packet.Packet) (Result, error) {
	a.logger.Debugf("[%04x] Not allowed: %s", query.ID, strings.Join(query.QuestionNames(), ", "))
	return Result{Halt: true}, nil
}
