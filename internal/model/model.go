// Package model holds the growth models the simulation kernel can step.
//
// The model set is closed: dispatch is an exhaustive switch over Model,
// and an unknown model id is an error rather than a silent fallback.
package model

import (
	"errors"
	"fmt"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/prng"
)

// ErrUnknownModel is returned when a model id is not registered.
var ErrUnknownModel = errors.New("unknown model")

// betaNoiseScale widens the noise term of the beta model.
const betaNoiseScale = 1.5

// Model is a growth model.
type Model int

// Registered models.
const (
	Stable Model = iota + 1
	Beta
)

// Info describes a registered model for display.
type Info struct {
	ID   domain.ModelID `json:"id"`
	Name string         `json:"name"`
}

// All returns every registered model in display order.
func All() []Info {
	return []Info{
		{ID: Stable.ID(), Name: Stable.Name()},
		{ID: Beta.ID(), Name: Beta.Name()},
	}
}

// Parse resolves a model id.
func Parse(id domain.ModelID) (Model, error) {
	switch id {
	case domain.ModelGrowthV1:
		return Stable, nil
	case domain.ModelGrowthV2:
		return Beta, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
}

// ID returns the registry id of the model.
func (m Model) ID() domain.ModelID {
	switch m {
	case Stable:
		return domain.ModelGrowthV1
	case Beta:
		return domain.ModelGrowthV2
	default:
		return ""
	}
}

// Name returns the display name of the model.
func (m Model) Name() string {
	switch m {
	case Stable:
		return "Growth V1 (Stable)"
	case Beta:
		return "Growth V2 (Beta)"
	default:
		return "unknown"
	}
}

// String implements fmt.Stringer.
func (m Model) String() string {
	return string(m.ID())
}

// Step computes the next state from state, params and one draw from src.
// It reads nothing besides its arguments; Tripped is left for the executor.
func (m Model) Step(state domain.SimState, params domain.Parameters, src prng.Source) (domain.SimState, error) {
	shock := params.ShockSum()

	switch m {
	case Stable:
		noise := (src.Next() - 0.5) * params.Volatility
		growth := params.Rate + noise + shock
		state.Cash = state.Cash * (1 + growth)
	case Beta:
		state.Cash = state.Cash * (1 + params.Rate + (src.Next()-0.5)*params.Volatility*betaNoiseScale + shock)
	default:
		return state, fmt.Errorf("%w: %d", ErrUnknownModel, int(m))
	}

	state.Tick++
	return state, nil
}

// Step resolves id and applies one step of that model.
func Step(id domain.ModelID, state domain.SimState, params domain.Parameters, src prng.Source) (domain.SimState, error) {
	m, err := Parse(id)
	if err != nil {
		return state, err
	}
	return m.Step(state, params, src)
}
