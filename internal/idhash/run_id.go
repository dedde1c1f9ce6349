// Package idhash derives deterministic identifiers from run inputs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"sanctum-sim/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(scenario|mode|seed|runs|model|iterations|rate|volatility|tripwire|chaos|shocks)
// The scenario id is part of the identity: a fork starts with its parent's
// parameters, and its runs must still archive under their own id.
// where floats use the shortest exact decimal form and shocks are "id:impact"
// joined by "," in activation order.
// Returns hex-encoded hash (64 characters).
func ComputeRunID(scenarioID, mode, seed string, runs int, params domain.Parameters) string {
	shocks := make([]string, len(params.ActiveShocks))
	for i, s := range params.ActiveShocks {
		shocks[i] = s.ID + ":" + formatFloat(s.Impact)
	}

	data := fmt.Sprintf("%s|%s|%s|%d|%s|%d|%s|%s|%t|%t|%s",
		scenarioID,
		mode,
		seed,
		runs,
		string(params.Model),
		params.Iterations,
		formatFloat(params.Rate),
		formatFloat(params.Volatility),
		params.TripwireEnabled,
		params.ChaosMode,
		strings.Join(shocks, ","),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
