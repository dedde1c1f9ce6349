package simulation

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/model"
)

func mustShock(t *testing.T, id string) domain.Shock {
	t.Helper()
	s, ok := domain.LookupShock(id)
	if !ok {
		t.Fatalf("shock %s not in catalogue", id)
	}
	return s
}

func flatParams() domain.Parameters {
	p := domain.DefaultParameters()
	p.Rate = 0
	p.Volatility = 0
	p.Iterations = 120
	return p
}

func TestExecute_Deterministic(t *testing.T) {
	params := domain.DefaultParameters()

	first, err := Execute("Northfield", params)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		got, err := Execute("Northfield", params)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestExecute_DifferentSeedsDiverge(t *testing.T) {
	params := domain.DefaultParameters()

	a, err := Execute("Northfield", params)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	b, err := Execute("Southfield", params)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if a.FinalCash() == b.FinalCash() {
		t.Errorf("expected different final cash for different seeds, both %v", a.FinalCash())
	}
}

func TestExecute_FlatCash(t *testing.T) {
	params := flatParams()
	params.Iterations = 10
	params.TripwireEnabled = false

	result, err := Execute("test", params)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(result.Series) != 11 {
		t.Fatalf("expected 11 states, got %d", len(result.Series))
	}
	for i, s := range result.Series {
		if s.Cash != domain.InitialCash {
			t.Errorf("tick %d: expected cash %v, got %v", i, domain.InitialCash, s.Cash)
		}
		if s.Tick != uint32(i) {
			t.Errorf("series[%d]: expected tick %d, got %d", i, i, s.Tick)
		}
		if s.Tripped {
			t.Errorf("tick %d: unexpected trip", i)
		}
	}
	if len(result.Trace) != 0 {
		t.Errorf("expected empty trace, got %v", result.Trace)
	}
	if result.Final != result.Series[len(result.Series)-1] {
		t.Errorf("final %+v does not match last series entry", result.Final)
	}
}

func TestExecute_TripwireHalts(t *testing.T) {
	params := flatParams()
	params.ActiveShocks = []domain.Shock{mustShock(t, domain.ShockMarketCrash)}

	result, err := Execute("test", params)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// 100k * 0.85^5 is the first value below 50k.
	if len(result.Series) != 6 {
		t.Fatalf("expected 6 states, got %d", len(result.Series))
	}
	if !result.Final.Tripped {
		t.Error("expected final state to be tripped")
	}
	if result.Final.Tick != 5 {
		t.Errorf("expected final tick 5, got %d", result.Final.Tick)
	}
	if result.Final.Cash >= domain.TripwireFloor {
		t.Errorf("expected final cash below floor, got %v", result.Final.Cash)
	}
	for i, s := range result.Series[:len(result.Series)-1] {
		if s.Tripped {
			t.Errorf("series[%d] tripped before breach", i)
		}
		if s.Cash < domain.TripwireFloor {
			t.Errorf("series[%d] below floor before breach: %v", i, s.Cash)
		}
	}

	wantTrace := []string{"Tick 4: Tripwire Triggered (Cash < 50k)"}
	if !reflect.DeepEqual(result.Trace, wantTrace) {
		t.Errorf("trace = %v, want %v", result.Trace, wantTrace)
	}
}

func TestExecute_TripwireDisabled(t *testing.T) {
	params := flatParams()
	params.ActiveShocks = []domain.Shock{mustShock(t, domain.ShockMarketCrash)}
	params.TripwireEnabled = false

	result, err := Execute("test", params)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(result.Series) != int(params.Iterations)+1 {
		t.Fatalf("expected %d states, got %d", params.Iterations+1, len(result.Series))
	}
	if result.Final.Tripped {
		t.Error("tripwire disabled but final state tripped")
	}
	if len(result.Trace) != 0 {
		t.Errorf("expected empty trace, got %v", result.Trace)
	}
}

func TestExecute_ChaosShocks(t *testing.T) {
	params := flatParams()
	params.Iterations = domain.MaxIterations
	params.TripwireEnabled = false
	params.ChaosMode = true

	result, err := Execute("chaos", params)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(result.ChaosTicks) == 0 {
		t.Fatal("expected at least one chaos tick over 500 iterations")
	}

	chaos := make(map[uint32]bool, len(result.ChaosTicks))
	for _, tick := range result.ChaosTicks {
		chaos[tick] = true
	}

	impact := domain.ChaosShockImpact
	for i := 1; i < len(result.Series); i++ {
		prev := result.Series[i-1].Cash
		want := prev
		if chaos[uint32(i-1)] {
			want = prev * (1 + impact)
		}
		if result.Series[i].Cash != want {
			t.Fatalf("tick %d: expected cash %v, got %v", i, want, result.Series[i].Cash)
		}
	}
}

func TestExecute_ChaosDrawShiftsStream(t *testing.T) {
	// Chaos mode consumes one extra draw per tick before the model step.
	params := domain.DefaultParameters()
	params.TripwireEnabled = false

	calm, err := Execute("Northfield", params)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	params.ChaosMode = true
	wild, err := Execute("Northfield", params)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if calm.Series[1].Cash == wild.Series[1].Cash {
		t.Error("expected chaos draw to shift the noise stream")
	}
}

func TestExecute_DoesNotMutateParams(t *testing.T) {
	shocks := make([]domain.Shock, 1, 4)
	shocks[0] = mustShock(t, domain.ShockRateHike)
	params := flatParams()
	params.ActiveShocks = shocks
	params.ChaosMode = true
	params.TripwireEnabled = false
	params.Iterations = domain.MaxIterations

	before := params.Clone()
	if _, err := Execute("chaos", params); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !reflect.DeepEqual(before, params) {
		t.Errorf("params mutated: before %+v, after %+v", before, params)
	}
	spare := shocks[:2]
	if spare[1] != (domain.Shock{}) {
		t.Errorf("backing array written past len: %+v", spare[1])
	}
}

func TestExecuteWithObserver(t *testing.T) {
	var seen []domain.SimState
	result, err := ExecuteWithObserver("Northfield", domain.DefaultParameters(), func(s domain.SimState) {
		seen = append(seen, s)
	})
	if err != nil {
		t.Fatalf("ExecuteWithObserver failed: %v", err)
	}
	if !reflect.DeepEqual(seen, result.Series) {
		t.Errorf("observer saw %d states, series has %d", len(seen), len(result.Series))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		seed   string
		mutate func(p *domain.Parameters)
		want   error
	}{
		{"defaults", "Northfield", func(p *domain.Parameters) {}, nil},
		{"min iterations", "x", func(p *domain.Parameters) { p.Iterations = domain.MinIterations }, nil},
		{"max iterations", "x", func(p *domain.Parameters) { p.Iterations = domain.MaxIterations }, nil},
		{"empty seed", "", func(p *domain.Parameters) {}, ErrEmptySeed},
		{"too few iterations", "x", func(p *domain.Parameters) { p.Iterations = 9 }, ErrIterationsOutOfRange},
		{"too many iterations", "x", func(p *domain.Parameters) { p.Iterations = 501 }, ErrIterationsOutOfRange},
		{"unknown model", "x", func(p *domain.Parameters) { p.Model = "GROWTH_V3" }, model.ErrUnknownModel},
		{"nan rate", "x", func(p *domain.Parameters) { p.Rate = math.NaN() }, ErrNonFiniteParam},
		{"inf volatility", "x", func(p *domain.Parameters) { p.Volatility = math.Inf(1) }, ErrNonFiniteParam},
		{"inf shock", "x", func(p *domain.Parameters) {
			p.ActiveShocks = []domain.Shock{{ID: "X", Impact: math.Inf(-1)}}
		}, ErrNonFiniteParam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.DefaultParameters()
			tt.mutate(&p)
			err := Validate(tt.seed, p)
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestExecute_RejectsInvalid(t *testing.T) {
	p := domain.DefaultParameters()
	p.Iterations = 0
	result, err := Execute("x", p)
	if !errors.Is(err, ErrIterationsOutOfRange) {
		t.Fatalf("expected ErrIterationsOutOfRange, got %v", err)
	}
	if result != nil {
		t.Error("expected nil result on validation failure")
	}
}
