package lists

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
)

func writeList(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write list file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	first := writeList(t, dir, "ads.txt", "ads.example tracker.example\n\tmetrics.example   \n")
	second := writeList(t, dir, "hosts.txt", "# blocked hosts\n0.0.0.0 Malware.Example. # inline\n::1 ipv6.example\n")

	set, err := Load([]string{first, second})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if set.Len() != 5 {
		t.Errorf("Len() = %d, want 5", set.Len())
	}

	tests := []struct {
		name     string
		expected bool
	}{
		{"ads.example", true},
		{"tracker.example", true},
		{"metrics.example", true},
		{"malware.example", true},
		{"MALWARE.EXAMPLE.", true},
		{"ipv6.example", true},
		{"sub.ads.example", false},
		{"0.0.0.0", false},
		{"inline", false},
		{"blocked", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.Contains(tt.name); got != tt.expected {
				t.Errorf("Contains(%q) = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load([]string{filepath.Join(t.TempDir(), "missing.txt")})
	if !stderrors.Is(err, &errors.Error{Code: errors.ErrCodeList}) {
		t.Errorf("Load() error = %v, want list error", err)
	}
}

func TestContainsAny(t *testing.T) {
	set := NewDomainSet("blocked.example")

	if !set.ContainsAny([]string{"ok.example", "blocked.example"}) {
		t.Errorf("expected a match")
	}
	if set.ContainsAny([]string{"ok.example"}) || set.ContainsAny(nil) {
		t.Errorf("unexpected match")
	}
}

func TestLoad_SingleLongLine(t *testing.T) {
	names := make([]string, 5000)
	for i := range names {
		names[i] = fmt.Sprintf("host%04d.untrusted.example", i)
	}
	line := strings.Join(names, " ")
	if len(line) <= 64*1024 {
		t.Fatalf("test line is only %d bytes", len(line))
	}

	path := writeList(t, t.TempDir(), "noscript.untrusted", "# untrusted\n"+line)
	set, err := Load([]string{path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if set.Len() != len(names) {
		t.Errorf("Len() = %d, want %d", set.Len(), len(names))
	}
	for _, name := range []string{names[0], names[2500], names[4999]} {
		if !set.Contains(name) {
			t.Errorf("Contains(%q) = false, want true", name)
		}
	}
}
