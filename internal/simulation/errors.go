package simulation

import "errors"

// Configuration errors. A run with invalid parameters is rejected before it starts.
var (
	// ErrEmptySeed is returned when the seed is zero-length.
	ErrEmptySeed = errors.New("seed must not be empty")

	// ErrIterationsOutOfRange is returned when iterations fall outside [10, 500].
	ErrIterationsOutOfRange = errors.New("iterations out of range")

	// ErrNonFiniteParam is returned when rate, volatility or a shock impact is NaN or Inf.
	ErrNonFiniteParam = errors.New("parameter must be finite")
)
