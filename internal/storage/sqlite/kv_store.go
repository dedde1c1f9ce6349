package sqlite

import (
	"context"
	"fmt"
	"time"

	"sanctum-sim/internal/storage"
)

// KVStore is a SQLite implementation of storage.KVStore backed by kv_entries.
type KVStore struct {
	db *DB
}

// NewKVStore creates a new SQLite key-value store.
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

// Compile-time interface check.
var _ storage.KVStore = (*KVStore)(nil)

// Get returns the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) (value []byte, err error) {
	if key == "" {
		return nil, storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("kv_get", start, err) }(time.Now())

	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get kv entry %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) (err error) {
	if key == "" {
		return storage.ErrInvalidInput
	}
	if value == nil {
		value = []byte{}
	}
	defer func(start time.Time) { observe("kv_put", start, err) }(time.Now())

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET value = excluded.value,
		    updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("put kv entry %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *KVStore) Delete(ctx context.Context, key string) (err error) {
	if key == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("kv_delete", start, err) }(time.Now())

	if _, err = s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete kv entry %s: %w", key, err)
	}
	return nil
}
