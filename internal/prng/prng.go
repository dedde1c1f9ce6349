// Package prng provides the seeded pseudo-random stream used by the simulation kernel.
//
// A stream is a pure function of its seed string and the number of draws taken.
// There is no reseeding and no external entropy.
package prng

import "strconv"

// Seed folding and LCG constants (32-bit wraparound).
const (
	foldBasis      uint32 = 0xdeadbeef
	foldMultiplier uint32 = 2654435761
	lcgMultiplier  uint32 = 1664525
	lcgIncrement   uint32 = 1013904223
)

// twoPow32 normalizes the unsigned 32-bit state into [0,1).
const twoPow32 = 4294967296.0

// Source yields values in [0,1).
type Source interface {
	Next() float64
}

// Rand is a linear congruential generator seeded from a string.
// A Rand is not safe for concurrent use; each replication owns its own.
type Rand struct {
	state uint32
}

// New folds the raw bytes of seed into the initial generator state.
func New(seed string) *Rand {
	return &Rand{state: Fold(seed)}
}

// Fold maps a seed string to its initial 32-bit state.
// Folding is defined over bytes, so byte-identical seeds always agree.
func Fold(seed string) uint32 {
	h := foldBasis
	for i := 0; i < len(seed); i++ {
		h = (h ^ uint32(seed[i])) * foldMultiplier
	}
	return h ^ (h >> 16)
}

// Next advances the generator once and returns a value in [0,1).
func (r *Rand) Next() float64 {
	r.state = r.state*lcgMultiplier + lcgIncrement
	return float64(r.state) / twoPow32
}

// State returns the current internal state.
func (r *Rand) State() uint32 {
	return r.state
}

// ReplicationSeed derives the seed of Monte Carlo replication i.
func ReplicationSeed(base string, i int) string {
	return base + "_MC_" + strconv.Itoa(i)
}

var _ Source = (*Rand)(nil)
