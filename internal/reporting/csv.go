package reporting

import (
	"fmt"
	"strings"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/metrics"
)

// RenderCSV renders a run's series with the worst-case and baseline
// envelopes as CSV string.
func RenderCSV(result *domain.RunResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString("tick,cash,worst_case,baseline,tripped\n")
	if result == nil {
		return sb.String()
	}

	worst := metrics.WorstCaseEnvelope(result)
	base := metrics.BaselineEnvelope(result)

	// Rows
	for i, s := range result.Series {
		sb.WriteString(fmt.Sprintf("%d,%.6f,%.6f,%.6f,%t\n",
			s.Tick,
			s.Cash,
			worst[i],
			base[i],
			s.Tripped,
		))
	}

	return sb.String()
}

// RenderDistributionCSV renders sorted terminal cash values as CSV string.
func RenderDistributionCSV(stats *domain.MonteCarloStats) string {
	var sb strings.Builder

	sb.WriteString("rank,terminal_cash\n")
	if stats == nil {
		return sb.String()
	}
	for i, v := range stats.All {
		sb.WriteString(fmt.Sprintf("%d,%.6f\n", i, v))
	}

	return sb.String()
}
