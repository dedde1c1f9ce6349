package memory

import (
	"context"
	"errors"
	"testing"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/storage"
)

func makeRunRecord(runID, scenarioID string, createdAt int64) *domain.RunRecord {
	return &domain.RunRecord{
		RunID:      runID,
		ScenarioID: scenarioID,
		Mode:       domain.RunModeSingle,
		Seed:       "Northfield",
		Params:     domain.DefaultParameters(),
		Runs:       1,
		Result: &domain.RunResult{
			Series: []domain.SimState{{Cash: 100000}, {Cash: 101000, Tick: 1}},
			Trace:  []string{},
			Final:  domain.SimState{Cash: 101000, Tick: 1},
		},
		CreatedAt: createdAt,
	}
}

func TestRunRecordStore_InsertAndGet(t *testing.T) {
	store := NewRunRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, makeRunRecord("run1", "default", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Result.FinalCash() != 101000 {
		t.Errorf("final cash mismatch: got %f, want %f", got.Result.FinalCash(), 101000.0)
	}
}

func TestRunRecordStore_DuplicateKey(t *testing.T) {
	store := NewRunRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, makeRunRecord("run1", "default", 1000)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, makeRunRecord("run1", "default", 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRunRecordStore_NotFound(t *testing.T) {
	store := NewRunRecordStore()

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRunRecordStore_InvalidInput(t *testing.T) {
	store := NewRunRecordStore()
	ctx := context.Background()

	bad := makeRunRecord("run1", "default", 1000)
	bad.Mode = "BATCH"

	for name, r := range map[string]*domain.RunRecord{
		"nil":       nil,
		"no id":     makeRunRecord("", "default", 1000),
		"bad mode":  bad,
		"no result": {RunID: "x", Mode: domain.RunModeSingle},
	} {
		if err := store.Insert(ctx, r); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestRunRecordStore_GetByScenario_Ordered(t *testing.T) {
	store := NewRunRecordStore()
	ctx := context.Background()

	for _, r := range []*domain.RunRecord{
		makeRunRecord("run-c", "fork1", 3000),
		makeRunRecord("run-b", "fork1", 1000),
		makeRunRecord("run-a", "fork1", 1000),
		makeRunRecord("run-d", "default", 500),
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByScenario(ctx, "fork1")
	if err != nil {
		t.Fatalf("GetByScenario failed: %v", err)
	}
	want := []string{"run-a", "run-b", "run-c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].RunID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].RunID)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 4 || all[0].RunID != "run-d" {
		t.Errorf("unexpected GetAll order: %v", all)
	}
}

func TestRunRecordStore_ReturnsCopies(t *testing.T) {
	store := NewRunRecordStore()
	ctx := context.Background()

	r := makeRunRecord("run1", "default", 1000)
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	r.Result.Series[0].Cash = 1

	got, _ := store.GetByID(ctx, "run1")
	got.Params.ActiveShocks = append(got.Params.ActiveShocks, domain.ChaosShock())

	again, _ := store.GetByID(ctx, "run1")
	if again.Result.Series[0].Cash != 100000 {
		t.Errorf("stored series aliased caller slice: %v", again.Result.Series[0].Cash)
	}
	if len(again.Params.ActiveShocks) != 0 {
		t.Errorf("stored params aliased returned record: %v", again.Params.ActiveShocks)
	}
}
