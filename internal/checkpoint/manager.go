package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/huyngo/docpress/internal/core/domain"
)

// ManagerConfig tunes auto-save and retention behavior.
type ManagerConfig struct {
	AutoSaveInterval time.Duration `yaml:"auto_save_interval"`
	MaxPerBatch      int           `yaml:"max_per_batch"`
	MaxAge           time.Duration `yaml:"max_age"`
}

// DefaultManagerConfig provides the standard intervals.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		AutoSaveInterval: 30 * time.Second,
		MaxPerBatch:      10,
		MaxAge:           24 * time.Hour,
	}
}

// Manager layers auto-save timing and retention policy over any Store.
type Manager struct {
	store Store
	cfg   ManagerConfig
	log   *slog.Logger

	mu       sync.Mutex
	lastSave map[string]time.Time

	now func() time.Time
}

// NewManager creates a checkpoint manager on top of the given store.
func NewManager(store Store, cfg ManagerConfig, log *slog.Logger) *Manager {
	if cfg.AutoSaveInterval <= 0 {
		cfg.AutoSaveInterval = 30 * time.Second
	}
	if cfg.MaxPerBatch <= 0 {
		cfg.MaxPerBatch = 10
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return &Manager{
		store:    store,
		cfg:      cfg,
		log:      log,
		lastSave: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Save persists a snapshot, records the save time for auto-save
// bookkeeping, and evicts the oldest records beyond the per-batch cap.
func (m *Manager) Save(ctx context.Context, state *domain.BatchState) (domain.CheckpointID, error) {
	id, err := m.store.Save(ctx, state)
	if err != nil {
		return domain.CheckpointID{}, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	m.mu.Lock()
	m.lastSave[state.BatchID] = m.now()
	m.mu.Unlock()

	if err := m.enforceCap(ctx, state.BatchID); err != nil {
		m.log.Warn("Checkpoint retention cleanup failed", "batch_id", state.BatchID, "error", err)
	}

	m.log.Info("Checkpoint saved", "checkpoint", id.String())
	return id, nil
}

// Load restores one snapshot by identifier.
func (m *Manager) Load(ctx context.Context, id domain.CheckpointID) (*domain.BatchState, error) {
	return m.store.Load(ctx, id)
}

// LoadLatest restores the newest loadable snapshot for a batch,
// discarding corrupt records and falling back to the next-latest until
// one loads or none remain. Returns (nil, nil) when the batch has no
// usable checkpoint.
func (m *Manager) LoadLatest(ctx context.Context, batchID string) (*domain.BatchState, error) {
	ids, err := m.store.List(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Timestamp > ids[j].Timestamp })

	for _, id := range ids {
		state, err := m.store.Load(ctx, id)
		if err == nil {
			return state, nil
		}
		if errors.Is(err, ErrInvalidData) || errors.Is(err, ErrNotFound) {
			m.log.Warn("Discarding unusable checkpoint", "checkpoint", id.String(), "error", err)
			if delErr := m.store.Delete(ctx, id); delErr != nil {
				m.log.Warn("Failed to remove checkpoint", "checkpoint", id.String(), "error", delErr)
			}
			continue
		}
		return nil, err
	}
	return nil, nil
}

// ShouldAutoSave reports whether enough time has passed since the last
// save of this batch. A batch with no recorded save is always due.
func (m *Manager) ShouldAutoSave(batchID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastSave[batchID]
	if !ok {
		return true
	}
	return m.now().Sub(last) >= m.cfg.AutoSaveInterval
}

// Sweep removes records older than the configured max age across all
// batches.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.cfg.MaxAge)
	n, err := m.store.SweepOlderThan(ctx, cutoff)
	if err != nil {
		return n, fmt.Errorf("checkpoint sweep failed: %w", err)
	}
	if n > 0 {
		m.log.Info("Swept expired checkpoints", "removed", n)
	}
	return n, nil
}

// Forget drops auto-save bookkeeping for a finished batch.
func (m *Manager) Forget(batchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastSave, batchID)
}

func (m *Manager) enforceCap(ctx context.Context, batchID string) error {
	ids, err := m.store.List(ctx, batchID)
	if err != nil {
		return err
	}
	if len(ids) <= m.cfg.MaxPerBatch {
		return nil
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Timestamp < ids[j].Timestamp })
	excess := ids[:len(ids)-m.cfg.MaxPerBatch]
	for _, id := range excess {
		if err := m.store.Delete(ctx, id); err != nil {
			return err
		}
		m.log.Debug("Evicted old checkpoint", "checkpoint", id.String())
	}
	return nil
}
