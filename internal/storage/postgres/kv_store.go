package postgres

import (
	"context"
	"fmt"
	"time"

	"sanctum-sim/internal/storage"
)

// KVStore is a PostgreSQL implementation of storage.KVStore backed by kv_entries.
type KVStore struct {
	pool *Pool
}

// NewKVStore creates a new PostgreSQL key-value store.
func NewKVStore(pool *Pool) *KVStore {
	return &KVStore{pool: pool}
}

// Compile-time interface check.
var _ storage.KVStore = (*KVStore)(nil)

// Get returns the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) (value []byte, err error) {
	if key == "" {
		return nil, storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("kv_get", start, err) }(time.Now())

	err = s.pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get kv entry %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key.
// Uses upsert to handle initial insert and subsequent updates.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) (err error) {
	if key == "" {
		return storage.ErrInvalidInput
	}
	if value == nil {
		value = []byte{}
	}
	defer func(start time.Time) { observe("kv_put", start, err) }(time.Now())

	_, err = s.pool.Exec(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`, key, value)
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

	if _, err = s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete kv entry %s: %w", key, err)
	}
	return nil
}
