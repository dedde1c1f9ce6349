package metrics

import (
	"math"
	"sort"

	"sanctum-sim/internal/domain"
)

// Percentile ranks reported by Monte Carlo.
const (
	rankP05 = 0.05
	rankP50 = 0.50
	rankP95 = 0.95
)

// Sensitivity proxy coefficients applied to terminal cash.
const (
	sensitivityRate       = 0.15
	sensitivityVolatility = 0.05
	sensitivityShock      = 0.20
)

// Envelope coefficients for the illustrative chart overlays.
const (
	worstCaseFactor   = 0.8
	baselineFactor    = 0.9
	baselineDriftTick = 50.0
)

// computeStats summarizes replication results.
// results must be non-empty and in replication order.
func computeStats(results []*domain.RunResult) *domain.MonteCarloStats {
	n := len(results)
	if n == 0 {
		return &domain.MonteCarloStats{All: []float64{}}
	}

	finals := make([]float64, n)
	tripped := 0
	for i, r := range results {
		finals[i] = r.FinalCash()
		if r.Final.Tripped {
			tripped++
		}
	}
	sort.Float64s(finals)

	return &domain.MonteCarloStats{
		P05:     computePercentile(finals, rankP05),
		P50:     computePercentile(finals, rankP50),
		P95:     computePercentile(finals, rankP95),
		All:     finals,
		Mean:    computeMean(finals),
		Min:     finals[0],
		Max:     finals[n-1],
		Tripped: tripped,
	}
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computePercentile uses the nearest-rank rule idx = floor(p*n), clamped to n-1.
// sorted must be pre-sorted ASC.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(p * float64(n)))
	if idx > n-1 {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Sensitivity returns the tornado breakdown for a result.
// Every factor is a fixed proportion of terminal cash; Shock Magnitude keeps its sign.
func Sensitivity(result *domain.RunResult) []domain.SensitivityFactor {
	if result == nil {
		return nil
	}
	cash := result.FinalCash()
	return []domain.SensitivityFactor{
		{Name: domain.DriverInterestRate, Impact: math.Abs(cash * sensitivityRate)},
		{Name: domain.DriverVolatility, Impact: math.Abs(cash * sensitivityVolatility)},
		{Name: domain.DriverShockMagnitude, Impact: cash * sensitivityShock},
	}
}

// WorstCaseEnvelope returns cash*0.8 for every tick of the series.
func WorstCaseEnvelope(result *domain.RunResult) []float64 {
	if result == nil {
		return nil
	}
	out := make([]float64, len(result.Series))
	for i, s := range result.Series {
		out[i] = s.Cash * worstCaseFactor
	}
	return out
}

// BaselineEnvelope returns cash*0.9 + i*50 for every tick i of the series.
func BaselineEnvelope(result *domain.RunResult) []float64 {
	if result == nil {
		return nil
	}
	out := make([]float64, len(result.Series))
	for i, s := range result.Series {
		out[i] = s.Cash*baselineFactor + float64(i)*baselineDriftTick
	}
	return out
}

// MaxDrawdown calculates the worst peak-to-trough cash decline.
// max_drawdown = MAX(peak_cash - cash), in series order.
func MaxDrawdown(series []domain.SimState) float64 {
	if len(series) == 0 {
		return 0
	}

	peak := series[0].Cash
	maxDrawdown := 0.0

	for _, s := range series {
		if s.Cash > peak {
			peak = s.Cash
		}
		if drawdown := peak - s.Cash; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}
