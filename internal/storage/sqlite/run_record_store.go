package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/storage"
)

// RunRecordStore is a SQLite implementation of storage.RunRecordStore.
// Params, result and stats are stored as JSON text.
type RunRecordStore struct {
	db *DB
}

// NewRunRecordStore creates a new SQLite run record store.
func NewRunRecordStore(db *DB) *RunRecordStore {
	return &RunRecordStore{db: db}
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

	params, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	result, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	var stats sql.NullString
	if r.Stats != nil {
		b, err := json.Marshal(r.Stats)
		if err != nil {
			return fmt.Errorf("encode stats: %w", err)
		}
		stats = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO run_records (`+runRecordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO NOTHING
	`, r.RunID, r.ScenarioID, r.Mode, r.Seed, string(params), r.Runs, string(result), stats, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	if n == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetByID retrieves a run record by ID. Returns ErrNotFound if not exists.
func (s *RunRecordStore) GetByID(ctx context.Context, runID string) (rec *domain.RunRecord, err error) {
	defer func(start time.Time) { observe("run_get", start, err) }(time.Now())

	row := s.db.QueryRowContext(ctx, `
		SELECT `+runRecordColumns+`
		FROM run_records
		WHERE run_id = ?
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runRecordColumns+`
		FROM run_records
		WHERE scenario_id = ?
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
	rows, err := s.db.QueryContext(ctx, `
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

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunRecord(row rowScanner) (*domain.RunRecord, error) {
	var r domain.RunRecord
	var params, result string
	var stats sql.NullString

	if err := row.Scan(
		&r.RunID, &r.ScenarioID, &r.Mode, &r.Seed, &params, &r.Runs, &result, &stats, &r.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
		return nil, fmt.Errorf("decode params of run %s: %w", r.RunID, err)
	}
	r.Result = &domain.RunResult{}
	if err := json.Unmarshal([]byte(result), r.Result); err != nil {
		return nil, fmt.Errorf("decode result of run %s: %w", r.RunID, err)
	}
	if stats.Valid {
		r.Stats = &domain.MonteCarloStats{}
		if err := json.Unmarshal([]byte(stats.String), r.Stats); err != nil {
			return nil, fmt.Errorf("decode stats of run %s: %w", r.RunID, err)
		}
	}
	return &r, nil
}

func scanRunRecords(rows *sql.Rows) ([]*domain.RunRecord, error) {
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
