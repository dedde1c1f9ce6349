package reporting

import (
	"strings"
	"testing"

	"sanctum-sim/internal/domain"
)

func TestRenderCSV(t *testing.T) {
	result := &domain.RunResult{
		Series: []domain.SimState{
			{Cash: 100000},
			{Cash: 48000, Tick: 1, Tripped: true},
		},
	}

	lines := strings.Split(strings.TrimSpace(RenderCSV(result)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "tick,cash,worst_case,baseline,tripped" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "0,100000.000000,80000.000000,90000.000000,false" {
		t.Errorf("row 0 = %q", lines[1])
	}
	if lines[2] != "1,48000.000000,38400.000000,43250.000000,true" {
		t.Errorf("row 1 = %q", lines[2])
	}
}

func TestRenderCSV_Nil(t *testing.T) {
	if got := RenderCSV(nil); got != "tick,cash,worst_case,baseline,tripped\n" {
		t.Errorf("RenderCSV(nil) = %q", got)
	}
}

func TestRenderDistributionCSV(t *testing.T) {
	got := RenderDistributionCSV(&domain.MonteCarloStats{All: []float64{1.5, 2}})
	want := "rank,terminal_cash\n0,1.500000\n1,2.000000\n"
	if got != want {
		t.Errorf("RenderDistributionCSV = %q, want %q", got, want)
	}
}
