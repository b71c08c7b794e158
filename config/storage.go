package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StoreDriver selects the backing implementation of the device key-value store.
type StoreDriver string

const (
	// StoreDriverSQLite keeps session and cache data in a local SQLite file.
	StoreDriverSQLite StoreDriver = "sqlite"
	// StoreDriverRedis keeps session and cache data in Redis.
	StoreDriverRedis StoreDriver = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreDriver.
func (d *StoreDriver) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "sqlite", "redis":
		*d = StoreDriver(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreDriver: %q (valid options: sqlite, redis)", v)
	}
}

// StorageConfig controls where the signed-in session is persisted.
type StorageConfig struct {
	Driver StoreDriver `env:"STORE_DRIVER" envDefault:"sqlite"`
	// Path is the SQLite database file. Defaults to <user config dir>/nutrinom/nutrinom.db.
	Path string `env:"STORE_PATH"`
	// EncryptionKey seals the bearer token at rest. 32 bytes raw, hex, or base64.
	EncryptionKey string `env:"STORE_ENCRYPTION_KEY"`
	// KeyPrefix namespaces keys when the store is shared (Redis).
	KeyPrefix string `env:"STORE_KEY_PREFIX" envDefault:"nutrinom:"`
}

// Sanitize fills the default database path.
func (c *StorageConfig) Sanitize() {
	if c.Driver == "" {
		c.Driver = StoreDriverSQLite
	}
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		c.Path = defaultStorePath()
	}
	c.EncryptionKey = strings.TrimSpace(c.EncryptionKey)
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "nutrinom.db"
	}
	return filepath.Join(dir, "nutrinom", "nutrinom.db")
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}

// LookupCacheConfig controls the barcode lookup cache.
type LookupCacheConfig struct {
	Enabled bool          `env:"LOOKUP_CACHE_ENABLED" envDefault:"true"`
	TTL     time.Duration `env:"LOOKUP_CACHE_TTL"     envDefault:"24h"`
}

// Sanitize disables the cache when the TTL is not positive.
func (c *LookupCacheConfig) Sanitize() {
	if c.TTL <= 0 {
		c.Enabled = false
	}
}
