package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
)

// DefaultMaxEntries bounds a memory store created with a non-positive size.
const DefaultMaxEntries = 10000

type memoryEntry struct {
	value    []byte
	deadline time.Time
	elem     *list.Element
}

// MemoryStore keeps entries in process. When full, the least recently used
// entry is evicted. Expired entries are dropped on access and by Cleanup.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	lruList    *list.List // keys, front = least recently used
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore creates a memory store holding at most maxEntries entries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		lruList:    list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// lookup returns the live entry for key, dropping it if expired.
// Must be called with mu held.
func (s *MemoryStore) lookup(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !s.now().Before(e.deadline) {
		s.removeLocked(key, e)
		return nil
	}
	return e
}

func (s *MemoryStore) removeLocked(key string, e *memoryEntry) {
	s.lruList.Remove(e.elem)
	delete(s.entries, key)
}

// Exists reports whether an unexpired entry exists for key.
func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key) != nil, nil
}

// Get returns a copy of the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return nil, errors.ErrCacheMiss
	}
	s.lruList.MoveToBack(e.elem)
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value. A non-positive ttl removes the entry.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.removeLocked(key, e)
	}
	if ttl <= 0 {
		return nil
	}

	e := &memoryEntry{
		value:    append([]byte(nil), value...),
		deadline: s.now().Add(ttl),
	}
	e.elem = s.lruList.PushBack(key)
	s.entries[key] = e

	for s.lruList.Len() > s.maxEntries {
		oldest := s.lruList.Front()
		oldestKey := oldest.Value.(string)
		s.removeLocked(oldestKey, s.entries[oldestKey])
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet cleaned up.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

// Cleanup removes expired entries and returns how many were removed.
func (s *MemoryStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.deadline) {
			s.removeLocked(key, e)
			removed++
		}
	}
	return removed
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close drops all entries.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*memoryEntry)
	s.lruList.Init()
	return nil
}
