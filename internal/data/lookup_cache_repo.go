package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nutrinom/nutrinom-go/internal/ports"
)

var _ ports.LookupCache = (*SQLiteLookupCacheRepo)(nil)

// SQLiteLookupCacheRepo caches product documents by barcode in the
// lookup_cache table. Expired rows are treated as misses and removed lazily.
type SQLiteLookupCacheRepo struct {
	db    *sql.DB
	clock TimeProvider
}

// NewSQLiteLookupCacheRepo creates a lookup cache over an opened database.
func NewSQLiteLookupCacheRepo(db *sql.DB, clock TimeProvider) *SQLiteLookupCacheRepo {
	if clock == nil {
		clock = RealTimeProvider{}
	}
	return &SQLiteLookupCacheRepo{db: db, clock: clock}
}

// Get returns the cached document for code if it has not expired.
func (r *SQLiteLookupCacheRepo) Get(ctx context.Context, code string) ([]byte, bool, error) {
	if code == "" {
		return nil, false, ErrCodeRequired
	}
	var (
		doc       []byte
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT document, expires_at FROM lookup_cache WHERE code = ?`, code,
	).Scan(&doc, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup cache get %s: %w", code, err)
	}
	if r.clock.Now().UnixMilli() >= expiresAt {
		if delErr := r.Delete(ctx, code); delErr != nil {
			return nil, false, delErr
		}
		return nil, false, nil
	}
	return doc, true, nil
}

// Set stores doc under code for ttl. A non-positive ttl is a no-op.
func (r *SQLiteLookupCacheRepo) Set(ctx context.Context, code string, doc []byte, ttl time.Duration) error {
	if code == "" {
		return ErrCodeRequired
	}
	if ttl <= 0 {
		return nil
	}
	now := r.clock.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lookup_cache (code, document, stored_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			document = excluded.document,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at`,
		code, doc, now.UnixMilli(), now.Add(ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("lookup cache set %s: %w", code, err)
	}
	return nil
}

// Delete removes a cached document.
func (r *SQLiteLookupCacheRepo) Delete(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lookup_cache WHERE code = ?`, code); err != nil {
		return fmt.Errorf("lookup cache delete %s: %w", code, err)
	}
	return nil
}

// Prune removes every expired row and returns how many were deleted.
func (r *SQLiteLookupCacheRepo) Prune(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM lookup_cache WHERE expires_at <= ?`, r.clock.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("lookup cache prune: %w", err)
	}
	return res.RowsAffected()
}
