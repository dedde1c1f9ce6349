package reporting

import (
	"fmt"
	"strings"
	"time"

	"sanctum-sim/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Simulation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	}
	if r.ScenarioID != "" {
		name := r.ScenarioName
		if name == "" {
			name = r.ScenarioID
		}
		sb.WriteString(fmt.Sprintf("Scenario: %s (`%s`)\n\n", name, r.ScenarioID))
	}

	// Parameters
	p := r.Params
	sb.WriteString("## Parameters\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Mode | %s |\n", r.Mode))
	sb.WriteString(fmt.Sprintf("| Seed | %s |\n", r.Seed))
	sb.WriteString(fmt.Sprintf("| Seed Hash | %s |\n", r.Fingerprint))
	sb.WriteString(fmt.Sprintf("| Model | %s |\n", p.Model))
	sb.WriteString(fmt.Sprintf("| Iterations | %d |\n", p.Iterations))
	sb.WriteString(fmt.Sprintf("| Rate | %.4f |\n", p.Rate))
	sb.WriteString(fmt.Sprintf("| Volatility | %.4f |\n", p.Volatility))
	sb.WriteString(fmt.Sprintf("| Tripwire | %t |\n", p.TripwireEnabled))
	sb.WriteString(fmt.Sprintf("| Chaos Mode | %t |\n", p.ChaosMode))
	if r.Mode != domain.RunModeSingle {
		sb.WriteString(fmt.Sprintf("| Replications | %d |\n", r.Runs))
	}
	sb.WriteString(fmt.Sprintf("| Est. Cost | $%s |\n", r.CostEstimate))
	sb.WriteString("\n")

	if len(p.ActiveShocks) > 0 {
		sb.WriteString("### Active Shocks\n\n")
		for _, s := range p.ActiveShocks {
			sb.WriteString(fmt.Sprintf("- %s (%s): %+.2f\n", s.Name, s.ID, s.Impact))
		}
		sb.WriteString("\n")
	}

	// Outcome
	sb.WriteString("## Outcome\n\n")
	if r.Result != nil {
		final := r.Result.Final
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Final Cash | %.2f |\n", final.Cash))
		sb.WriteString(fmt.Sprintf("| Final Tick | %d |\n", final.Tick))
		sb.WriteString(fmt.Sprintf("| Tripped | %t |\n", final.Tripped))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f |\n", r.MaxDrawdown))
		sb.WriteString(fmt.Sprintf("| Chaos Shocks | %d |\n", len(r.Result.ChaosTicks)))
		sb.WriteString("\n")
	} else {
		sb.WriteString("No result available.\n\n")
	}

	// Monte Carlo
	if r.Stats != nil {
		s := r.Stats
		sb.WriteString("## Monte Carlo Distribution\n\n")
		sb.WriteString("| Percentile | Terminal Cash |\n")
		sb.WriteString("|------------|---------------|\n")
		sb.WriteString(fmt.Sprintf("| P95 (Best) | %.0f |\n", s.P95))
		sb.WriteString(fmt.Sprintf("| P50 (Median) | %.0f |\n", s.P50))
		sb.WriteString(fmt.Sprintf("| P05 (Worst Case) | %.0f |\n", s.P05))
		sb.WriteString(fmt.Sprintf("| Mean | %.0f |\n", s.Mean))
		sb.WriteString(fmt.Sprintf("| Min | %.0f |\n", s.Min))
		sb.WriteString(fmt.Sprintf("| Max | %.0f |\n", s.Max))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Tripped replications: %d of %d\n\n", s.Tripped, len(s.All)))

		if len(r.Histogram) > 0 {
			sb.WriteString("### Histogram (every 5th replication)\n\n")
			sb.WriteString("```\n")
			for _, b := range r.Histogram {
				width := int(b.HeightPct / 5)
				if width < 0 {
					width = 0
				}
				sb.WriteString(fmt.Sprintf("%10.0f | %s\n", b.Value, strings.Repeat("#", width)))
			}
			sb.WriteString("```\n\n")
		}
	}

	// Sensitivity
	if len(r.Sensitivity) > 0 {
		sb.WriteString("## Sensitivity\n\n")
		sb.WriteString("| Driver | Impact |\n")
		sb.WriteString("|--------|--------|\n")
		for _, f := range r.Sensitivity {
			sb.WriteString(fmt.Sprintf("| %s | %.2f |\n", f.Name, f.Impact))
		}
		sb.WriteString("\n")
	}

	// Risk card
	sb.WriteString("## Governance Risk Card\n\n")
	sb.WriteString(fmt.Sprintf("Risk Score: **%s**\n\n", r.RiskCard.Score))
	sb.WriteString("```json\n")
	sb.WriteString(r.RiskCard.DetailJSON())
	sb.WriteString("\n```\n\n")

	// Execution log
	if len(r.ExecutionLog) > 0 {
		sb.WriteString("## Execution Trace\n\n")
		for _, line := range r.ExecutionLog {
			sb.WriteString(fmt.Sprintf("- %s\n", line))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
