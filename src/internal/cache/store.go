// Package cache stores raw DNS responses keyed by question for a bounded time.
//
// Two stores are available: RedisStore shares entries between processes
// through a Redis server, MemoryStore keeps them in process with LRU
// eviction. Both treat every entry as best-effort: a failed write is
// reported but nothing is retried.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/go-redis/redis/v8"
)

// KeyPrefix is prepended to every cache key.
const KeyPrefix = "dnsprotect.dns.cache."

// Store is a key-value store with per-entry expiry.
type Store interface {
	// Exists reports whether an unexpired entry exists for key.
	Exists(ctx context.Context, key string) (bool, error)
	// Get returns the entry for key or errors.ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. The expiry is set together with the value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the store.
	Close() error
}

// Key derives the cache key for a question set. Names are lowercased and
// joined with "."; the type of the first question is appended.
func Key(names []string, qtype uint16) string {
	normalized := make([]string, len(names))
	for i, name := range names {
		normalized[i] = strings.ToLower(strings.TrimSuffix(name, "."))
	}
	return KeyPrefix + strings.Join(normalized, ".") + ":" + strconv.Itoa(int(qtype))
}

// Open creates a store from a URL: redis://, rediss:// or memory://.
// maxEntries bounds the memory store.
func Open(rawURL string, maxEntries int) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid cache url %q", rawURL), err)
	}

	switch u.Scheme {
	case "redis", "rediss":
		opts, err := redis.ParseURL(rawURL)
		if err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("invalid redis url %q", rawURL), err)
		}
		return NewRedisStore(redis.NewClient(opts)), nil
	case "memory":
		return NewMemoryStore(maxEntries), nil
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unsupported cache url scheme %q", u.Scheme), nil)
	}
}
