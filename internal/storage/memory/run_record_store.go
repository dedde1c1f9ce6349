package memory

import (
	"context"
	"sync"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/storage"
)

// RunRecordStore is an in-memory implementation of storage.RunRecordStore.
type RunRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunRecord // keyed by run_id
}

// NewRunRecordStore creates a new in-memory run record store.
func NewRunRecordStore() *RunRecordStore {
	return &RunRecordStore{
		data: make(map[string]*domain.RunRecord),
	}
}

// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
func (s *RunRecordStore) Insert(_ context.Context, r *domain.RunRecord) error {
	if err := storage.ValidateRunRecord(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = storage.CloneRunRecord(r)
	return nil
}

// GetByID retrieves a run record by ID. Returns ErrNotFound if not exists.
func (s *RunRecordStore) GetByID(_ context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return storage.CloneRunRecord(r), nil
}

// GetByScenario retrieves all runs made under a scenario.
func (s *RunRecordStore) GetByScenario(_ context.Context, scenarioID string) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunRecord
	for _, r := range s.data {
		if r.ScenarioID == scenarioID {
			result = append(result, storage.CloneRunRecord(r))
		}
	}
	storage.SortRunRecords(result)
	return result, nil
}

// GetAll retrieves all run records.
func (s *RunRecordStore) GetAll(_ context.Context) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RunRecord, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, storage.CloneRunRecord(r))
	}
	storage.SortRunRecords(result)
	return result, nil
}

var _ storage.RunRecordStore = (*RunRecordStore)(nil)
