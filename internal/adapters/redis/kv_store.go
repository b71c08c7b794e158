package redis

// Package redis provides Redis-backed adapters for nutrinom.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/nutrinom/nutrinom-go/internal/ports"
)

const scanBatch = 100

var _ ports.KeyValueStore = (*KVStore)(nil)

// KVStore is a key/value store whose keys all live under a prefix, so Clear
// only removes what this store wrote.
type KVStore struct {
	client redis.UniversalClient
	prefix string
}

// NewKVStore creates a Redis key/value store with the default "kv:" namespace.
func NewKVStore(client redis.UniversalClient) *KVStore {
	return NewKVStoreWithPrefix(client, "")
}

// NewKVStoreWithPrefix creates a Redis key/value store under prefix+"kv:".
func NewKVStoreWithPrefix(client redis.UniversalClient, prefix string) *KVStore {
	return &KVStore{
		client: client,
		prefix: prefix + "kv:",
	}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("key cannot be empty")
	}
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

// Set stores value without expiry; the session lives until logout.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil // Nothing to delete
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			full = append(full, s.prefix+k)
		}
	}
	if len(full) == 0 {
		return nil
	}
	return s.client.Del(ctx, full...).Err()
}

// Clear deletes every key under the store's prefix using SCAN so it never
// blocks the server with KEYS.
func (s *KVStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Keys returns the unprefixed keys currently stored.
func (s *KVStore) Keys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, s.prefix))
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}
