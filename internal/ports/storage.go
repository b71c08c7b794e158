package ports

import (
	"context"
	"time"
)

// KeyValueStore is the device-local string store that holds the session.
type KeyValueStore interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	// Clear removes every key owned by this store.
	Clear(ctx context.Context) error
}

// LookupCache caches raw product documents by barcode.
type LookupCache interface {
	Get(ctx context.Context, code string) ([]byte, bool, error)
	Set(ctx context.Context, code string, doc []byte, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

// Sealer protects secrets before they reach a KeyValueStore. label binds
// the sealed value to the key it is stored under.
type Sealer interface {
	Seal(plaintext []byte, label string) (string, error)
	Open(sealed, label string) ([]byte, error)
}
