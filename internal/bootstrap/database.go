package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nutrinom/nutrinom-go/config"
	redisadapter "github.com/nutrinom/nutrinom-go/internal/adapters/redis"
	"github.com/nutrinom/nutrinom-go/internal/data"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// StorageConfig contains configuration for the device store and lookup cache.
type StorageConfig struct {
	Storage     config.StorageConfig
	RedisConfig config.RedisConfig
	LookupCache config.LookupCacheConfig
	Clock       data.TimeProvider
	Logger      *slog.Logger
}

// Storage bundles the opened stores. Close releases whichever backend was used.
type Storage struct {
	KV ports.KeyValueStore
	// Cache is nil when the lookup cache is disabled.
	Cache ports.LookupCache

	db    *sql.DB
	redis redis.UniversalClient
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	var errs []error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sqlite database: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis client: %w", err))
		}
	}
	return errors.Join(errs...)
}

// OpenStorage opens the configured store driver.
func OpenStorage(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	if cfg.Clock == nil {
		cfg.Clock = data.RealTimeProvider{}
	}
	switch cfg.Storage.Driver {
	case config.StoreDriverRedis:
		return openRedisStorage(ctx, cfg)
	default:
		return openSQLiteStorage(ctx, cfg)
	}
}

func openSQLiteStorage(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	db, err := data.OpenSQLite(ctx, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Logger != nil {
		cfg.Logger.Debug("sqlite store opened", "path", cfg.Storage.Path)
	}

	st := &Storage{
		KV: data.NewSQLiteKVRepo(db, cfg.Clock),
		db: db,
	}
	if cfg.LookupCache.Enabled {
		cache := data.NewSQLiteLookupCacheRepo(db, cfg.Clock)
		if n, pruneErr := cache.Prune(ctx); pruneErr != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("prune lookup cache failed", "error", pruneErr)
			}
		} else if n > 0 && cfg.Logger != nil {
			cfg.Logger.Debug("pruned expired lookup cache entries", "count", n)
		}
		st.Cache = cache
	}
	return st, nil
}

func openRedisStorage(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	client, err := ConnectRedis(ctx, cfg.RedisConfig, cfg.Logger)
	if err != nil {
		return nil, err
	}
	prefix := cfg.Storage.KeyPrefix
	st := &Storage{
		KV:    redisadapter.NewKVStoreWithPrefix(client, prefix),
		redis: client,
	}
	if cfg.LookupCache.Enabled {
		st.Cache = data.NewRedisLookupCacheRepo(client, prefix)
	}
	return st, nil
}

// ConnectRedis establishes a connection to Redis.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single or sentinel clients at runtime.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	var (
		client   redis.UniversalClient
		addrDesc string
		err      error
	)

	if cfg.UseSentinel {
		client, addrDesc, err = newSentinelClient(cfg)
	} else {
		client, addrDesc, err = newDirectClient(cfg)
	}
	if err != nil {
		return nil, err
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if logger != nil {
		logger.Debug("redis connected", "addr", redactAddr(addrDesc))
	}

	return client, nil
}

// redactAddr strips credentials from a connection description.
func redactAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addr, "@"); i > -1 {
		return addr[i+1:]
	}
	return addr
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newSentinelClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	if len(cfg.SentinelNodes) == 0 {
		return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
	}

	opts := &redis.FailoverOptions{
		MasterName:       cfg.SentinelMasterName,
		SentinelAddrs:    cfg.SentinelNodes,
		Password:         cfg.Password,
		SentinelPassword: cfg.SentinelPassword,
		DB:               cfg.DB,
	}
	client := redis.NewFailoverClient(opts)
	return client, "sentinel:" + cfg.SentinelMasterName, nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newDirectClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, "", errors.New("redis direct configuration requires a URI")
	}

	if isRedisURL(uri) {
		opt, err := redis.ParseURL(uri)
		if err != nil {
			return nil, "", fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), opt.Addr, nil
	}

	opts := &redis.Options{
		Addr:     uri,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	return redis.NewClient(opts), uri, nil
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}
