// Package scenario manages named parameter bundles and the live editing
// state derived from the active one.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/logging"
	"sanctum-sim/internal/observability"
)

// forkNamePrefix prefixes the name of every forked scenario.
const forkNamePrefix = "Fork of "

// Options configures a Store.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string // defaults to the first 8 chars of a random UUID
}

// Results holds the outputs computed against the live parameters.
type Results struct {
	Result      *domain.RunResult          `json:"result,omitempty"`
	Stats       *domain.MonteCarloStats    `json:"stats,omitempty"`
	Sensitivity []domain.SensitivityFactor `json:"sensitivity,omitempty"`
}

// Clone returns a deep copy.
func (r Results) Clone() Results {
	return Results{
		Result:      r.Result.Clone(),
		Stats:       r.Stats.Clone(),
		Sensitivity: append([]domain.SensitivityFactor(nil), r.Sensitivity...),
	}
}

// Empty reports whether nothing has been recorded.
func (r Results) Empty() bool {
	return r.Result == nil && r.Stats == nil && len(r.Sensitivity) == 0
}

// LiveState is a consistent view of the live editing state.
// Generation changes whenever the live parameters are replaced; results
// computed from an older generation are discarded by Record.
type LiveState struct {
	Params     domain.Parameters
	ActiveID   string
	Generation uint64
}

// Store is the scenario collection plus live parameters.
// The "default" scenario is always present and the active id always resolves.
// All accessors return copies.
type Store struct {
	mu sync.RWMutex

	repo   Repository
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	scenarios []domain.Scenario
	activeID  string
	live      domain.Parameters
	results   Results

	// generation counts replacements of live (fork, switch, delete of the
	// active scenario, SetLive).
	generation uint64
}

// Open loads the collection from repo and restores invariants:
// a missing "default" scenario is recreated and an unresolvable active id
// falls back to "default". Live parameters start as the active scenario's.
func Open(ctx context.Context, repo Repository, opts Options) (*Store, error) {
	s := &Store{
		repo:   repo,
		logger: logging.OrDiscard(opts.Logger),
		now:    opts.Now,
		newID:  opts.NewID,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String()[:8] }
	}

	coll, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}

	s.scenarios = make([]domain.Scenario, 0, len(coll.Scenarios)+1)
	seen := make(map[string]bool, len(coll.Scenarios))
	for _, sc := range coll.Scenarios {
		if sc.ID == "" || seen[sc.ID] {
			s.logger.Warn("dropping invalid or duplicate scenario", "id", sc.ID)
			continue
		}
		seen[sc.ID] = true
		s.scenarios = append(s.scenarios, sc.Clone())
	}
	if !seen[domain.DefaultScenarioID] {
		s.logger.Info("restoring default scenario")
		s.scenarios = append([]domain.Scenario{domain.DefaultScenario(s.now().UnixMilli())}, s.scenarios...)
	}

	s.activeID = coll.ActiveID
	if s.indexOf(s.activeID) < 0 {
		if s.activeID != "" {
			s.logger.Warn("active scenario not found, using default", "id", s.activeID)
		}
		s.activeID = domain.DefaultScenarioID
	}
	s.live = s.scenarios[s.indexOf(s.activeID)].Params.Clone()

	observability.UpdateScenarioCount(len(s.scenarios))
	return s, nil
}

// Fork appends a new scenario holding live, named after the active scenario,
// and makes it active. The source scenario is untouched.
func (s *Store) Fork(ctx context.Context, live domain.Parameters) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevScenarios, prevActive, prevLive, prevGen := s.scenarios, s.activeID, s.live, s.generation

	active := s.scenarios[s.indexOf(s.activeID)]
	id := s.uniqueID()
	forked := domain.Scenario{
		ID:        id,
		Name:      forkNamePrefix + active.Name,
		Timestamp: s.now().UnixMilli(),
		Params:    live.Clone(),
	}

	s.scenarios = append(cloneScenarios(s.scenarios), forked)
	s.activeID = id
	s.live = live.Clone()
	s.generation++

	if err := s.persist(ctx); err != nil {
		s.scenarios, s.activeID, s.live, s.generation = prevScenarios, prevActive, prevLive, prevGen
		observability.RecordScenarioOp("fork", "error")
		return "", err
	}

	s.logger.Info("scenario forked", "id", id, "from", active.ID, "name", forked.Name)
	observability.RecordScenarioOp("fork", "ok")
	observability.UpdateScenarioCount(len(s.scenarios))
	return id, nil
}

// Switch loads scenario id into the live parameters and clears recorded results.
// An unknown id is a logged no-op and returns false.
func (s *Store) Switch(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		s.logger.Warn("switch to unknown scenario ignored", "id", id)
		observability.RecordScenarioOp("switch", "ignored")
		return false, nil
	}

	prevActive, prevLive, prevResults, prevGen := s.activeID, s.live, s.results, s.generation

	s.activeID = id
	s.live = s.scenarios[idx].Params.Clone()
	s.results = Results{}
	s.generation++

	if err := s.persist(ctx); err != nil {
		s.activeID, s.live, s.results, s.generation = prevActive, prevLive, prevResults, prevGen
		observability.RecordScenarioOp("switch", "error")
		return false, err
	}

	s.logger.Info("scenario switched", "id", id)
	observability.RecordScenarioOp("switch", "ok")
	return true, nil
}

// Delete removes scenario id. Deleting "default" or an unknown id is a
// logged no-op and returns false. Deleting the active scenario switches to "default".
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == domain.DefaultScenarioID {
		s.logger.Warn("refusing to delete default scenario")
		observability.RecordScenarioOp("delete", "rejected")
		return false, nil
	}
	idx := s.indexOf(id)
	if idx < 0 {
		s.logger.Warn("delete of unknown scenario ignored", "id", id)
		observability.RecordScenarioOp("delete", "ignored")
		return false, nil
	}

	prevScenarios, prevActive, prevLive, prevResults, prevGen := s.scenarios, s.activeID, s.live, s.results, s.generation

	next := make([]domain.Scenario, 0, len(s.scenarios)-1)
	next = append(next, s.scenarios[:idx]...)
	next = append(next, s.scenarios[idx+1:]...)
	s.scenarios = next

	if s.activeID == id {
		s.activeID = domain.DefaultScenarioID
		s.live = s.scenarios[s.indexOf(domain.DefaultScenarioID)].Params.Clone()
		s.results = Results{}
		s.generation++
	}

	if err := s.persist(ctx); err != nil {
		s.scenarios, s.activeID, s.live, s.results, s.generation = prevScenarios, prevActive, prevLive, prevResults, prevGen
		observability.RecordScenarioOp("delete", "error")
		return false, err
	}

	s.logger.Info("scenario deleted", "id", id, "active", s.activeID)
	observability.RecordScenarioOp("delete", "ok")
	observability.UpdateScenarioCount(len(s.scenarios))
	return true, nil
}

// Commit writes the live parameters into the active scenario.
// The "default" scenario is never overwritten in place; committing
// while it is active is a logged no-op and returns false.
func (s *Store) Commit(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == domain.DefaultScenarioID {
		s.logger.Warn("refusing to overwrite default scenario; fork instead")
		observability.RecordScenarioOp("commit", "rejected")
		return false, nil
	}

	prevScenarios := s.scenarios
	s.scenarios = cloneScenarios(s.scenarios)
	s.scenarios[s.indexOf(s.activeID)].Params = s.live.Clone()

	if err := s.persist(ctx); err != nil {
		s.scenarios = prevScenarios
		observability.RecordScenarioOp("commit", "error")
		return false, err
	}

	s.logger.Info("scenario committed", "id", s.activeID)
	observability.RecordScenarioOp("commit", "ok")
	return true, nil
}

// SetLive replaces the live parameters. Recorded results are cleared.
func (s *Store) SetLive(params domain.Parameters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.live = params.Clone()
	s.results = Results{}
	s.generation++
}

// Live returns a copy of the live parameters.
func (s *Store) Live() domain.Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.live.Clone()
}

// LiveState returns the live parameters, the active id and the current
// generation, read together.
func (s *Store) LiveState() LiveState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return LiveState{Params: s.live.Clone(), ActiveID: s.activeID, Generation: s.generation}
}

// ActiveID returns the id of the active scenario.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeID
}

// Active returns a copy of the active scenario.
func (s *Store) Active() domain.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scenarios[s.indexOf(s.activeID)].Clone()
}

// Get returns a copy of scenario id.
func (s *Store) Get(id string) (domain.Scenario, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Scenario{}, false
	}
	return s.scenarios[idx].Clone(), true
}

// List returns copies of all scenarios in insertion order.
func (s *Store) List() []domain.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneScenarios(s.scenarios)
}

// Record stores outputs computed from the live parameters of generation gen.
// Outputs from an older generation are dropped and Record returns false.
func (s *Store) Record(gen uint64, result *domain.RunResult, stats *domain.MonteCarloStats, sensitivity []domain.SensitivityFactor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Debug("discarding stale results", "generation", gen, "current", s.generation)
		return false
	}
	s.results = Results{Result: result, Stats: stats, Sensitivity: sensitivity}.Clone()
	return true
}

// RecordBatch stores a Monte Carlo batch from generation gen and keeps the
// recorded sensitivity, which only single runs compute. It returns that
// sensitivity, or false when gen is stale.
func (s *Store) RecordBatch(gen uint64, representative *domain.RunResult, stats *domain.MonteCarloStats) ([]domain.SensitivityFactor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Debug("discarding stale batch", "generation", gen, "current", s.generation)
		return nil, false
	}
	s.results = Results{Result: representative, Stats: stats, Sensitivity: s.results.Sensitivity}.Clone()
	return append([]domain.SensitivityFactor(nil), s.results.Sensitivity...), true
}

// Results returns a copy of the recorded outputs.
func (s *Store) Results() Results {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.results.Clone()
}

// Snapshot returns the collection as persisted.
func (s *Store) Snapshot() domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.Collection {
	return domain.Collection{Scenarios: cloneScenarios(s.scenarios), ActiveID: s.activeID}
}

func (s *Store) persist(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.snapshotLocked()); err != nil {
		return fmt.Errorf("persist scenarios: %w", err)
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, sc := range s.scenarios {
		if sc.ID == id {
			return i
		}
	}
	return -1
}

// uniqueID draws ids until one is unused and not "default".
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if id != "" && id != domain.DefaultScenarioID && s.indexOf(id) < 0 {
			return id
		}
	}
}

func cloneScenarios(in []domain.Scenario) []domain.Scenario {
	out := make([]domain.Scenario, len(in))
	for i, sc := range in {
		out[i] = sc.Clone()
	}
	return out
}
