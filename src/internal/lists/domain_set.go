package lists

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
)

const (
	initialLineBuffer = 64 * 1024
	maxLineLength     = 64 * 1024 * 1024
)

// DomainSet is a set of normalized domain names.
type DomainSet struct {
	domains map[string]struct{}
}

// NewDomainSet creates a set holding the given names.
func NewDomainSet(names ...string) *DomainSet {
	s := &DomainSet{domains: make(map[string]struct{}, len(names))}
	for _, name := range names {
		s.add(name)
	}
	return s
}

// Load reads every file in paths and merges their names into one set.
// A file that cannot be read fails the whole load.
func Load(paths []string) (*DomainSet, error) {
	s := NewDomainSet()
	for _, path := range paths {
		before := s.Len()
		if err := s.loadFile(path); err != nil {
			return nil, err
		}
		log.Debugf("Loaded %d domains from %s", s.Len()-before, path)
	}
	return s, nil
}

func (s *DomainSet) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewListError(fmt.Sprintf("failed to open list %s", path), err)
	}
	defer f.Close()

	if err := s.read(f); err != nil {
		return errors.NewListError(fmt.Sprintf("failed to read list %s", path), err)
	}
	return nil
}

func (s *DomainSet) read(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	// Lists are often a single space-separated line.
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineLength)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, token := range strings.Fields(line) {
			if _, err := netip.ParseAddr(token); err == nil {
				continue
			}
			s.add(token)
		}
	}
	return scanner.Err()
}

func (s *DomainSet) add(name string) {
	if normalized := normalize(name); normalized != "" {
		s.domains[normalized] = struct{}{}
	}
}

// Contains reports whether name is in the set.
func (s *DomainSet) Contains(name string) bool {
	_, ok := s.domains[normalize(name)]
	return ok
}

// ContainsAny reports whether at least one of names is in the set.
func (s *DomainSet) ContainsAny(names []string) bool {
	for _, name := range names {
		if s.Contains(name) {
			return true
		}
	}
	return false
}

// Len returns the number of names in the set.
func (s *DomainSet) Len() int {
	return len(s.domains)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
