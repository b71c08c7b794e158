package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nutrinom/nutrinom-go/internal/ports"
)

var _ ports.LookupCache = (*RedisLookupCacheRepo)(nil)

// RedisLookupCacheRepo implements the lookup cache on Redis, relying on key
// TTLs for expiry.
type RedisLookupCacheRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLookupCacheRepo creates a cache whose keys are prefix+"lookup:"+code.
func NewRedisLookupCacheRepo(client redis.UniversalClient, prefix string) *RedisLookupCacheRepo {
	return &RedisLookupCacheRepo{client: client, prefix: prefix + "lookup:"}
}

// Set stores a document with the given TTL. A non-positive ttl is a no-op.
func (r *RedisLookupCacheRepo) Set(ctx context.Context, code string, doc []byte, ttl time.Duration) error {
	if code == "" {
		return ErrCodeRequired
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+code, doc, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get retrieves a cached document.
func (r *RedisLookupCacheRepo) Get(ctx context.Context, code string) ([]byte, bool, error) {
	if code == "" {
		return nil, false, ErrCodeRequired
	}
	result, err := r.client.Get(ctx, r.prefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return result, true, nil
}

// Delete removes a cached document.
func (r *RedisLookupCacheRepo) Delete(ctx context.Context, code string) error {
	if code == "" {
		return nil
	}
	if err := r.client.Del(ctx, r.prefix+code).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Health checks the health of the Redis connection.
func (r *RedisLookupCacheRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
