package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nutrinom/nutrinom-go/internal/ports"
)

var _ ports.KeyValueStore = (*SQLiteKVRepo)(nil)

// SQLiteKVRepo is the device-local key/value store backed by the kv table.
type SQLiteKVRepo struct {
	db    *sql.DB
	clock TimeProvider
}

// NewSQLiteKVRepo creates a key/value repository over an opened database.
func NewSQLiteKVRepo(db *sql.DB, clock TimeProvider) *SQLiteKVRepo {
	if clock == nil {
		clock = RealTimeProvider{}
	}
	return &SQLiteKVRepo{db: db, clock: clock}
}

// Get returns the value stored under key.
func (r *SQLiteKVRepo) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrKeyRequired
	}
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts key.
func (r *SQLiteKVRepo) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrKeyRequired
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, r.clock.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (r *SQLiteKVRepo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}

// Clear removes every key.
func (r *SQLiteKVRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("kv clear: %w", err)
	}
	return nil
}
