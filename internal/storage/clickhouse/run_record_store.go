package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/storage"
)

// RunRecordStore implements storage.RunRecordStore using ClickHouse.
// Summaries go to run_records; the representative series is also
// exploded into run_ticks for analytical queries.
type RunRecordStore struct {
	conn *Conn
}

// NewRunRecordStore creates a new RunRecordStore.
func NewRunRecordStore(conn *Conn) *RunRecordStore {
	return &RunRecordStore{conn: conn}
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

	// ReplacingMergeTree would replace, but we want append-only semantics
	exists, err := s.exists(ctx, r.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	params, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	result, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	var stats []byte
	if r.Stats != nil {
		if stats, err = json.Marshal(r.Stats); err != nil {
			return fmt.Errorf("encode stats: %w", err)
		}
	}

	err = s.conn.Exec(ctx, `
		INSERT INTO run_records (
			run_id, scenario_id, mode, seed, params, runs,
			final_cash, tripped, series_len,
			result, stats, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID, r.ScenarioID, r.Mode, r.Seed, string(params), uint32(r.Runs),
		r.Result.Final.Cash, r.Result.Final.Tripped, uint32(len(r.Result.Series)),
		string(result), string(stats), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}

	return s.insertTicks(ctx, r.RunID, r.Result.Series)
}

// insertTicks batch-inserts the per-tick series.
func (s *RunRecordStore) insertTicks(ctx context.Context, runID string, series []domain.SimState) error {
	if len(series) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO run_ticks (run_id, tick, cash, tripped)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, st := range series {
		if err := batch.Append(runID, st.Tick, st.Cash, st.Tripped); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByID retrieves a run record by ID. Returns ErrNotFound if not exists.
func (s *RunRecordStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+runRecordColumns+`
		FROM run_records FINAL
		WHERE run_id = ?
		LIMIT 1
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	records, err := scanRunRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// GetByScenario retrieves all runs made under a scenario.
func (s *RunRecordStore) GetByScenario(ctx context.Context, scenarioID string) ([]*domain.RunRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+runRecordColumns+`
		FROM run_records FINAL
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
	rows, err := s.conn.Query(ctx, `
		SELECT `+runRecordColumns+`
		FROM run_records FINAL
		ORDER BY created_at ASC, run_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all runs: %w", err)
	}
	defer rows.Close()

	return scanRunRecords(rows)
}

// GetTicks returns the archived series of a run ordered by tick.
func (s *RunRecordStore) GetTicks(ctx context.Context, runID string) ([]domain.SimState, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT tick, cash, tripped
		FROM run_ticks
		WHERE run_id = ?
		ORDER BY tick ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var series []domain.SimState
	for rows.Next() {
		var st domain.SimState
		if err := rows.Scan(&st.Tick, &st.Cash, &st.Tripped); err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}
		series = append(series, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick rows: %w", err)
	}
	return series, nil
}

// exists checks if a run with the given ID exists.
func (s *RunRecordStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM run_records FINAL
		WHERE run_id = ?
	`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanRunRecords scans multiple rows into a slice.
func scanRunRecords(rows chRows) ([]*domain.RunRecord, error) {
	var records []*domain.RunRecord

	for rows.Next() {
		var (
			r      domain.RunRecord
			params string
			runs   uint32
			result string
			stats  string
		)
		if err := rows.Scan(
			&r.RunID, &r.ScenarioID, &r.Mode, &r.Seed, &params, &runs, &result, &stats, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.Runs = int(runs)

		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("decode params of run %s: %w", r.RunID, err)
		}
		r.Result = &domain.RunResult{}
		if err := json.Unmarshal([]byte(result), r.Result); err != nil {
			return nil, fmt.Errorf("decode result of run %s: %w", r.RunID, err)
		}
		if stats != "" {
			r.Stats = &domain.MonteCarloStats{}
			if err := json.Unmarshal([]byte(stats), r.Stats); err != nil {
				return nil, fmt.Errorf("decode stats of run %s: %w", r.RunID, err)
			}
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return records, nil
}
