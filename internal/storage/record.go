package storage

import (
	"sort"

	"sanctum-sim/internal/domain"
)

// ValidateRunRecord checks the fields every backend requires before insert.
func ValidateRunRecord(r *domain.RunRecord) error {
	if r == nil || r.RunID == "" || r.Result == nil {
		return ErrInvalidInput
	}
	switch r.Mode {
	case domain.RunModeSingle, domain.RunModeMonteCarlo:
	default:
		return ErrInvalidInput
	}
	return nil
}

// CloneRunRecord returns a deep copy of r.
func CloneRunRecord(r *domain.RunRecord) *domain.RunRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Params = r.Params.Clone()
	out.Result = r.Result.Clone()
	out.Stats = r.Stats.Clone()
	return &out
}

// SortRunRecords orders records by created_at ASC, run_id ASC.
func SortRunRecords(records []*domain.RunRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].RunID < records[j].RunID
	})
}
