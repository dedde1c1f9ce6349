package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/logging"
	"sanctum-sim/internal/storage"
)

// Default persistence keys.
const (
	DefaultScenariosKey = "sanctum_sim_scenarios"
	DefaultActiveKey    = "sanctum_sim_active_scenario"
)

// Repository loads and saves the scenario collection.
type Repository interface {
	// Load returns the persisted collection. An absent collection is not an error.
	Load(ctx context.Context) (domain.Collection, error)

	// Save replaces the persisted collection.
	Save(ctx context.Context, c domain.Collection) error
}

// KVRepositoryOptions configures a KVRepository.
type KVRepositoryOptions struct {
	ScenariosKey string // defaults to DefaultScenariosKey
	ActiveKey    string // defaults to DefaultActiveKey
	Logger       *slog.Logger
	Now          func() time.Time
}

// KVRepository stores the scenario array as JSON under one key and the
// active scenario id as raw text under another.
type KVRepository struct {
	kv           storage.KVStore
	scenariosKey string
	activeKey    string
	logger       *slog.Logger
	now          func() time.Time
}

// NewKVRepository creates a repository over kv.
func NewKVRepository(kv storage.KVStore, opts KVRepositoryOptions) *KVRepository {
	r := &KVRepository{
		kv:           kv,
		scenariosKey: opts.ScenariosKey,
		activeKey:    opts.ActiveKey,
		logger:       logging.OrDiscard(opts.Logger),
		now:          opts.Now,
	}
	if r.scenariosKey == "" {
		r.scenariosKey = DefaultScenariosKey
	}
	if r.activeKey == "" {
		r.activeKey = DefaultActiveKey
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Compile-time interface check.
var _ Repository = (*KVRepository)(nil)

// Load reads the collection. An absent key yields the single default scenario;
// so does corrupt JSON, which is logged. Read errors are returned.
func (r *KVRepository) Load(ctx context.Context) (domain.Collection, error) {
	fallback := domain.DefaultCollection(r.now().UnixMilli())

	raw, err := r.kv.Get(ctx, r.scenariosKey)
	if errors.Is(err, storage.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return domain.Collection{}, fmt.Errorf("load scenarios: %w", err)
	}

	var scenarios []domain.Scenario
	if err := json.Unmarshal(raw, &scenarios); err != nil {
		r.logger.Warn("corrupt scenario collection, falling back to default",
			"key", r.scenariosKey, "error", err)
		return fallback, nil
	}

	activeID := ""
	active, err := r.kv.Get(ctx, r.activeKey)
	switch {
	case err == nil:
		activeID = string(active)
	case errors.Is(err, storage.ErrNotFound):
	default:
		return domain.Collection{}, fmt.Errorf("load active scenario: %w", err)
	}

	return domain.Collection{Scenarios: scenarios, ActiveID: activeID}, nil
}

// Save writes the collection and the active id.
func (r *KVRepository) Save(ctx context.Context, c domain.Collection) error {
	scenarios := c.Scenarios
	if scenarios == nil {
		scenarios = []domain.Scenario{}
	}
	raw, err := json.Marshal(scenarios)
	if err != nil {
		return fmt.Errorf("encode scenarios: %w", err)
	}

	if err := r.kv.Put(ctx, r.scenariosKey, raw); err != nil {
		return fmt.Errorf("save scenarios: %w", err)
	}
	if err := r.kv.Put(ctx, r.activeKey, []byte(c.ActiveID)); err != nil {
		return fmt.Errorf("save active scenario: %w", err)
	}
	return nil
}
