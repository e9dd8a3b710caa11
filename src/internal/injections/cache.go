package injections

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/cache"
	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/dnsprotect/dnsprotect/src/internal/packet"
)

// DefaultEmptyResultsTTL is used for responses without answers.
const DefaultEmptyResultsTTL = 5 * time.Second

func cacheKey(p *packet.Packet) string {
	return cache.Key(p.QuestionNames(), p.Questions[0].Type)
}

// LoadCache answers queries from the cache. The cached response still goes
// through the BeforeResponse chain.
type LoadCache struct {
	store  cache.Store
	hits   atomic.Uint64
	logger *log.Logger
}

// NewLoadCache creates the cache lookup injection.
func NewLoadCache(store cache.Store) *LoadCache {
	return &LoadCache{store: store, logger: log.New("CACHE")}
}

func (l *LoadCache) Name() string { return "load-cache" }
func (l *LoadCache) Phase() Phase { return BeforeQuery }

// Hits returns how many queries were answered from the cache.
func (l *LoadCache) Hits() uint64 { return l.hits.Load() }

func (l *LoadCache) NeedsExecution(ctx context.Context, query, _ *packet.Packet) (bool, error) {
	if query.IsReply() || !query.HasQuestions() {
		return false, nil
	}
	return l.store.Exists(ctx, cacheKey(query))
}

// Execute returns the cached response with the transaction id of query.
func (l *LoadCache) Execute(ctx context.Context, query, _ *packet.Packet) (Result, error) {
	cached, err := l.store.Get(ctx, cacheKey(query))
	if stderrors.Is(err, errors.ErrCacheMiss) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	l.hits.Add(1)
	l.logger.Debugf("[%04x] Cache hit for %s", query.ID, cacheKey(query))
	return Result{Response: packet.PatchID(cached, query.ID)}, nil
}

// SaveCacheOptions configures SaveCache.
type SaveCacheOptions struct {
	CacheEmptyResults bool
	EmptyResultsTTL   time.Duration
}

// SaveCache stores responses that are not cached yet.
type SaveCache struct {
	store  cache.Store
	opts   SaveCacheOptions
	logger *log.Logger
}

// NewSaveCache creates the cache write injection.
func NewSaveCache(store cache.Store, opts SaveCacheOptions) *SaveCache {
	if opts.EmptyResultsTTL <= 0 {
		opts.EmptyResultsTTL = DefaultEmptyResultsTTL
	}
	return &SaveCache{store: store, opts: opts, logger: log.New("CACHE")}
}

func (s *SaveCache) Name() string { return "save-cache" }
func (s *SaveCache) Phase() Phase { return AfterResponse }

func (s *SaveCache) NeedsExecution(_ context.Context, query, response *packet.Packet) (bool, error) {
	if response == nil || !query.HasQuestions() {
		return false, nil
	}
	return response.HasAnswers() || s.opts.CacheEmptyResults, nil
}

// Execute stores the response for min(answer TTLs), or for the empty result
// TTL when there are no answers. Responses with a zero TTL are not stored.
func (s *SaveCache) Execute(ctx context.Context, query, response *packet.Packet) (Result, error) {
	key := cacheKey(query)

	exists, err := s.store.Exists(ctx, key)
	if err != nil || exists {
		return Result{}, err
	}

	ttl := s.opts.EmptyResultsTTL
	if minTTL, ok := response.MinAnswerTTL(); ok {
		ttl = time.Duration(minTTL) * time.Second
	}
	if ttl <= 0 {
		return Result{}, nil
	}

	if err := s.store.Set(ctx, key, response.Raw(), ttl); err != nil {
		return Result{}, err
	}
	s.logger.Debugf("[%04x] Cached %s for %s", query.ID, key, ttl)
	return Result{}, nil
}
