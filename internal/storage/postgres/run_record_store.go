package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/storage"
)

// RunRecordStore is a PostgreSQL implementation of storage.RunRecordStore.
// Params, result and stats are stored as JSONB documents.
type RunRecordStore struct {
	pool *Pool
}

// NewRunRecordStore creates a new PostgreSQL run record store.
func NewRunRecordStore(pool *Pool) *RunRecordStore {
	return &RunRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunRecordStore = (*RunRecordStore)(nil)

const runRecordColumns = `run_id, scenario_id, mode, seed, params, runs, result, stats, created_at`

// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
func (s *RunRecordStore) Insert(ctx context.Context, r *domain.RunRecord) (err error) {
	if err := storage.ValidateRunRecord(r); err != nil {
		return err
	}
	defer func(start time.Time) { observe("run_insert", start, err) }(time.Now())

	params, result, stats, err := encodeRunRecord(r)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO run_records (`+runRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.RunID, r.ScenarioID, r.Mode, r.Seed, params, r.Runs, result, stats, r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// GetByID retrieves a run record by ID. Returns ErrNotFound if not exists.
func (s *RunRecordStore) GetByID(ctx context.Context, runID string) (rec *domain.RunRecord, err error) {
	defer func(start time.Time) { observe("run_get", start, err) }(time.Now())

	row := s.pool.QueryRow(ctx, `
		SELECT `+runRecordColumns+`
		FROM run_records
		WHERE run_id = $1
	`, runID)

	rec, err = scanRunRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// GetByScenario retrieves all runs made under a scenario.
func (s *RunRecordStore) GetByScenario(ctx context.Context, scenarioID string) ([]*domain.RunRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+runRecordColumns+`
		FROM run_records
		WHERE scenario_id = $1
		ORDER BY created_at ASC, run_id ASC
	`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("query runs by scenario: %w", err)
	}
	defer rows.Close()

	return scanRunRecords(rows)
}

// GetAll retrieves all run records.
func (s *RunRecordStore) GetAll(ctx context.Context) ([]*domain.RunRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+runRecordColumns+`
		FROM run_records
		ORDER BY created_at ASC, run_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all runs: %w", err)
	}
	defer rows.Close()

	return scanRunRecords(rows)
}

func encodeRunRecord(r *domain.RunRecord) (params, result, stats []byte, err error) {
	if params, err = json.Marshal(r.Params); err != nil {
		return nil, nil, nil, fmt.Errorf("encode params: %w", err)
	}
	if result, err = json.Marshal(r.Result); err != nil {
		return nil, nil, nil, fmt.Errorf("encode result: %w", err)
	}
	if r.Stats != nil {
		if stats, err = json.Marshal(r.Stats); err != nil {
			return nil, nil, nil, fmt.Errorf("encode stats: %w", err)
		}
	}
	return params, result, stats, nil
}

func scanRunRecord(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord
	var params, result, stats []byte

	if err := row.Scan(
		&r.RunID, &r.ScenarioID, &r.Mode, &r.Seed, &params, &r.Runs, &result, &stats, &r.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(params, &r.Params); err != nil {
		return nil, fmt.Errorf("decode params of run %s: %w", r.RunID, err)
	}
	r.Result = &domain.RunResult{}
	if err := json.Unmarshal(result, r.Result); err != nil {
		return nil, fmt.Errorf("decode result of run %s: %w", r.RunID, err)
	}
	if len(stats) > 0 {
		r.Stats = &domain.MonteCarloStats{}
		if err := json.Unmarshal(stats, r.Stats); err != nil {
			return nil, fmt.Errorf("decode stats of run %s: %w", r.RunID, err)
		}
	}
	return &r, nil
}

func scanRunRecords(rows pgx.Rows) ([]*domain.RunRecord, error) {
	var records []*domain.RunRecord
	for rows.Next() {
		r, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run records: %w", err)
	}
	return records, nil
}
