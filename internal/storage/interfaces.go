package storage

import (
	"context"

	"sanctum-sim/internal/domain"
)

// KVStore is a string-keyed blob store.
// Scenario persistence keeps its JSON documents here.
type KVStore interface {
	// Get returns the value stored under key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// RunRecordStore provides access to archived runs.
type RunRecordStore interface {
	// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByScenario retrieves all runs made under a scenario,
	// ordered by created_at ASC, run_id ASC.
	GetByScenario(ctx context.Context, scenarioID string) ([]*domain.RunRecord, error)

	// GetAll retrieves all run records, ordered by created_at ASC, run_id ASC.
	GetAll(ctx context.Context) ([]*domain.RunRecord, error)
}
