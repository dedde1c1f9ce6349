package domain

// InitialCash is the cash every run starts with.
const InitialCash = 100000.0

// TripwireFloor is the cash level below which an enabled tripwire halts a run.
const TripwireFloor = 50000.0

// SimState is the scalar financial state at one tick.
type SimState struct {
	Cash    float64 `json:"cash"`
	Tick    uint32  `json:"tick"`
	Tripped bool    `json:"tripped"`
}

// InitialState returns the state every run starts from.
func InitialState() SimState {
	return SimState{Cash: InitialCash}
}

// RunResult is the output of one replication.
// Series[0] is the initial state; Series is truncated at the breach tick when tripped.
type RunResult struct {
	Series []SimState `json:"series"`
	Trace  []string   `json:"trace"`
	Final  SimState   `json:"final"`

	// ChaosTicks lists ticks that received an injected chaos shock.
	ChaosTicks []uint32 `json:"chaosTicks,omitempty"`
}

// FinalCash returns the terminal cash of the run.
func (r *RunResult) FinalCash() float64 {
	return r.Final.Cash
}

// Clone returns a deep copy of the result.
func (r *RunResult) Clone() *RunResult {
	if r == nil {
		return nil
	}
	out := &RunResult{
		Series: append([]SimState(nil), r.Series...),
		Trace:  append([]string(nil), r.Trace...),
		Final:  r.Final,
	}
	if r.ChaosTicks != nil {
		out.ChaosTicks = append([]uint32(nil), r.ChaosTicks...)
	}
	return out
}
