package simulation

import (
	"fmt"
	"math"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/model"
	"sanctum-sim/internal/prng"
)

// Observer receives every state appended to a run's series, in order.
// Series[0] (the initial state) is delivered first.
type Observer func(state domain.SimState)

// Validate checks seed and params before a run. It never clamps.
func Validate(seed string, params domain.Parameters) error {
	if seed == "" {
		return ErrEmptySeed
	}
	if params.Iterations < domain.MinIterations || params.Iterations > domain.MaxIterations {
		return fmt.Errorf("%w: %d not in [%d, %d]",
			ErrIterationsOutOfRange, params.Iterations, domain.MinIterations, domain.MaxIterations)
	}
	if _, err := model.Parse(params.Model); err != nil {
		return err
	}
	if !isFinite(params.Rate) {
		return fmt.Errorf("%w: rate", ErrNonFiniteParam)
	}
	if !isFinite(params.Volatility) {
		return fmt.Errorf("%w: volatility", ErrNonFiniteParam)
	}
	for _, s := range params.ActiveShocks {
		if !isFinite(s.Impact) {
			return fmt.Errorf("%w: shock %q impact", ErrNonFiniteParam, s.ID)
		}
	}
	return nil
}

// Execute runs one replication.
func Execute(seed string, params domain.Parameters) (*domain.RunResult, error) {
	return ExecuteWithObserver(seed, params, nil)
}

// ExecuteWithObserver runs one replication and reports each appended state to obs.
// Steps per tick t:
//  1. With chaos mode on, draw once; below 0.05 this tick gets an extra -0.20 shock
//  2. Step the model
//  3. With the tripwire on and cash < 50k, mark tripped, trace, append and halt
//  4. Otherwise append and continue
//
// params is cloned on entry; the caller's value is never mutated.
func ExecuteWithObserver(seed string, params domain.Parameters, obs Observer) (*domain.RunResult, error) {
	if err := Validate(seed, params); err != nil {
		return nil, err
	}
	m, err := model.Parse(params.Model)
	if err != nil {
		return nil, err
	}

	params = params.Clone()
	src := prng.New(seed)

	state := domain.InitialState()
	result := &domain.RunResult{
		Series: make([]domain.SimState, 0, int(params.Iterations)+1),
		Trace:  make([]string, 0),
	}
	appendState := func(s domain.SimState) {
		result.Series = append(result.Series, s)
		if obs != nil {
			obs(s)
		}
	}
	appendState(state)

	for t := uint32(0); t < params.Iterations; t++ {
		// 1. Effective params for this tick
		tickParams := params
		if params.ChaosMode && src.Next() < domain.ChaosShockProbability {
			shocks := params.ActiveShocks[:len(params.ActiveShocks):len(params.ActiveShocks)]
			tickParams.ActiveShocks = append(shocks, domain.ChaosShock())
			result.ChaosTicks = append(result.ChaosTicks, t)
		}

		// 2. Model step
		state, err = m.Step(state, tickParams, src)
		if err != nil {
			return nil, err
		}

		// 3. Tripwire
		if params.TripwireEnabled && state.Cash < domain.TripwireFloor {
			state.Tripped = true
			result.Trace = append(result.Trace, TripwireTrace(t))
			appendState(state)
			break
		}

		// 4. Continue
		appendState(state)
	}

	result.Final = state
	return result, nil
}

// TripwireTrace formats the trace line recorded when the tripwire fires at tick t.
func TripwireTrace(t uint32) string {
	return fmt.Sprintf("Tick %d: Tripwire Triggered (Cash < 50k)", t)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
