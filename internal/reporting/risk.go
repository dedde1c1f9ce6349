package reporting

import (
	"encoding/json"
	"fmt"
	"unicode/utf16"

	"sanctum-sim/internal/domain"
)

// Risk card constants
const (
	RiskScoreCritical = "CRITICAL (95)"
	RiskScoreLow      = "LOW (12)"

	riskCardID         = "RSK-9921"
	riskConfidence     = "0.89"
	riskModeAdversary  = "ADVERSARIAL"
	riskModeStandard   = "STANDARD"
	costPerTick        = 0.000001
	monteCarloCostMult = 100
	histogramStride    = 5
)

// NewRiskCard builds the risk card for a result. chaos selects the
// ADVERSARIAL mode label.
func NewRiskCard(result *domain.RunResult, chaos bool) RiskCard {
	card := RiskCard{
		Score: RiskScoreLow,
		Detail: RiskDetail{
			ID:            riskCardID,
			Mode:          riskModeStandard,
			Confidence:    riskConfidence,
			PrimaryDriver: domain.DriverInterestRate,
		},
	}
	if chaos {
		card.Detail.Mode = riskModeAdversary
	}
	if result != nil && result.Final.Tripped {
		card.Score = RiskScoreCritical
		card.Detail.Tripwires = 1
	}
	return card
}

// DetailJSON renders the detail block indented by two spaces.
func (c RiskCard) DetailJSON() string {
	b, err := json.MarshalIndent(c.Detail, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// CostEstimate returns the nominal compute cost of a run with six decimals.
// Monte Carlo batches are priced at 100x regardless of replication count.
func CostEstimate(iterations uint32, mode string) string {
	mult := 1.0
	if mode == domain.RunModeMonteCarlo {
		mult = monteCarloCostMult
	}
	return fmt.Sprintf("%.6f", float64(iterations)*mult*costPerTick)
}

// Fingerprint returns the hex sum of the seed's UTF-16 code units.
// It is a display aid, not a hash: distinct seeds may share a fingerprint.
func Fingerprint(seed string) string {
	var sum uint64
	for _, u := range utf16.Encode([]rune(seed)) {
		sum += uint64(u)
	}
	return fmt.Sprintf("%x", sum)
}

// Histogram samples every fifth terminal cash value, scaled against P95.
func Histogram(stats *domain.MonteCarloStats) []HistogramBar {
	if stats == nil || len(stats.All) == 0 {
		return nil
	}
	bars := make([]HistogramBar, 0, (len(stats.All)+histogramStride-1)/histogramStride)
	for i := 0; i < len(stats.All); i += histogramStride {
		v := stats.All[i]
		bar := HistogramBar{Value: v}
		if stats.P95 != 0 {
			bar.HeightPct = v / stats.P95 * 100
		}
		bars = append(bars, bar)
	}
	return bars
}
