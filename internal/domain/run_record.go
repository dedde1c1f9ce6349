package domain

// Run modes
const (
	RunModeSingle     = "SINGLE"
	RunModeMonteCarlo = "MONTE_CARLO"
)

// RunRecord is an archived run with everything needed to replay it.
type RunRecord struct {
	RunID      string           // deterministic hash of mode, seed and params
	ScenarioID string           // scenario active when the run was made (may be empty)
	Mode       string           // SINGLE | MONTE_CARLO
	Seed       string           // base seed
	Params     Parameters       // parameters used
	Runs       int              // replication count (1 for SINGLE)
	Result     *RunResult       // representative result
	Stats      *MonteCarloStats // nil for SINGLE
	CreatedAt  int64            // unix ms
}
