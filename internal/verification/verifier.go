// Package verification replays archived runs and checks that the kernel
// still reproduces them bit for bit.
package verification

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"sanctum-sim/internal/domain"
)

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // field name, e.g. "Series[12].Cash"
	Expected any    // stored value
	Actual   any    // replayed value
}

// String renders the divergence for logs and CLI output.
func (d FieldDivergence) String() string {
	return fmt.Sprintf("%s: stored=%v replayed=%v", d.Field, d.Expected, d.Actual)
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID             string            `json:"run_id"`
	Mode              string            `json:"mode"`
	Match             bool              `json:"match"`
	Divergences       []FieldDivergence `json:"divergences,omitempty"`
	StoredFinalCash   float64           `json:"stored_final_cash"`
	ReplayedFinalCash float64           `json:"replayed_final_cash"`
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int                  `json:"total_runs"`
	MatchedRuns   int                  `json:"matched_runs"`
	DivergentRuns int                  `json:"divergent_runs"`
	Results       []VerificationResult `json:"results"`
}

// Verifier replays archived runs.
type Verifier interface {
	// VerifyRun loads one archived run, re-executes it with the same seed
	// and parameters, and compares every recorded field.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifyAll verifies every archived run.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareResults compares two run results and returns divergences.
// Cash values must be identical; a deterministic kernel leaves no room for tolerance.
// Only the first divergent tick is reported.
func CompareResults(stored, replayed *domain.RunResult) []FieldDivergence {
	if stored == nil || replayed == nil {
		if stored == replayed {
			return nil
		}
		return []FieldDivergence{{Field: "Result", Expected: stored != nil, Actual: replayed != nil}}
	}

	var divergences []FieldDivergence

	if len(stored.Series) != len(replayed.Series) {
		divergences = append(divergences, FieldDivergence{
			Field:    "SeriesLength",
			Expected: len(stored.Series),
			Actual:   len(replayed.Series),
		})
	}

	n := min(len(stored.Series), len(replayed.Series))
	for i := 0; i < n; i++ {
		s, r := stored.Series[i], replayed.Series[i]
		if s.Cash != r.Cash {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Series[%d].Cash", i),
				Expected: s.Cash,
				Actual:   r.Cash,
			})
			break
		}
		if s.Tick != r.Tick || s.Tripped != r.Tripped {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Series[%d]", i),
				Expected: s,
				Actual:   r,
			})
			break
		}
	}

	if stored.Final != replayed.Final {
		divergences = append(divergences, FieldDivergence{
			Field:    "Final",
			Expected: stored.Final,
			Actual:   replayed.Final,
		})
	}

	if !slices.Equal(stored.Trace, replayed.Trace) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Trace",
			Expected: strings.Join(stored.Trace, "; "),
			Actual:   strings.Join(replayed.Trace, "; "),
		})
	}

	if !slices.Equal(stored.ChaosTicks, replayed.ChaosTicks) {
		divergences = append(divergences, FieldDivergence{
			Field:    "ChaosTicks",
			Expected: stored.ChaosTicks,
			Actual:   replayed.ChaosTicks,
		})
	}

	return divergences
}

// CompareStats compares two Monte Carlo summaries and returns divergences.
func CompareStats(stored, replayed *domain.MonteCarloStats) []FieldDivergence {
	if stored == nil || replayed == nil {
		if stored == replayed {
			return nil
		}
		return []FieldDivergence{{Field: "Stats", Expected: stored != nil, Actual: replayed != nil}}
	}

	var divergences []FieldDivergence
	check := func(field string, s, r float64) {
		if s != r {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: s, Actual: r})
		}
	}

	check("P05", stored.P05, replayed.P05)
	check("P50", stored.P50, replayed.P50)
	check("P95", stored.P95, replayed.P95)
	check("Mean", stored.Mean, replayed.Mean)
	check("Min", stored.Min, replayed.Min)
	check("Max", stored.Max, replayed.Max)

	if stored.Tripped != replayed.Tripped {
		divergences = append(divergences, FieldDivergence{
			Field:    "Tripped",
			Expected: stored.Tripped,
			Actual:   replayed.Tripped,
		})
	}

	if len(stored.All) != len(replayed.All) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Replications",
			Expected: len(stored.All),
			Actual:   len(replayed.All),
		})
		return divergences
	}
	for i := range stored.All {
		if stored.All[i] != replayed.All[i] {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("All[%d]", i),
				Expected: stored.All[i],
				Actual:   replayed.All[i],
			})
			break
		}
	}

	return divergences
}
