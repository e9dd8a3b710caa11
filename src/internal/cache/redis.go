package cache

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/go-redis/redis/v8"
)

const redisScanBatch = 500

// RedisStore keeps entries in Redis. Values are stored base64 encoded.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps a Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Exists reports whether key is present.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.NewCacheError("redis EXISTS failed", err)
	}
	return n > 0, nil
}

// Get returns the decoded value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	encoded, err := s.client.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.ErrCacheMiss
	}
	if err != nil {
		return nil, errors.NewCacheError("redis GET failed", err)
	}

	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.NewCacheError("corrupt cache entry "+key, err)
	}
	return value, nil
}

// Set stores value with an expiry of ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, base64.StdEncoding.EncodeToString(value), ttl).Err(); err != nil {
		return errors.NewCacheError("redis SET failed", err)
	}
	return nil
}

// Len counts keys carrying KeyPrefix.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, KeyPrefix+"*", redisScanBatch).Result()
		if err != nil {
			return 0, errors.NewCacheError("redis SCAN failed", err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

// Ping checks the connection to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.NewCacheError("redis PING failed", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
