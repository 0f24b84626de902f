package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/huyngo/docpress/internal/core/domain"
)

// MemoryStore keeps checkpoints in process memory. It backs tests and
// runs with checkpointing effectively disabled.
type MemoryStore struct {
	mu      sync.Mutex
	records map[domain.CheckpointID][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[domain.CheckpointID][]byte)}
}

// Save stores a serialized copy so later mutation of the state cannot
// alias the record.
func (s *MemoryStore) Save(ctx context.Context, state *domain.BatchState) (domain.CheckpointID, error) {
	id := domain.CheckpointID{
		BatchID:   state.BatchID,
		Timestamp: time.Now().UnixNano(),
		Type:      state.CheckpointType,
	}
	state.LastUpdated = time.Now()

	data, err := json.Marshal(state)
	if err != nil {
		return domain.CheckpointID{}, fmt.Errorf("failed to encode batch state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = data
	return id, nil
}

// Load restores one snapshot.
func (s *MemoryStore) Load(ctx context.Context, id domain.CheckpointID) (*domain.BatchState, error) {
	s.mu.Lock()
	data, ok := s.records[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}

	var state domain.BatchState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidData, id.String(), err)
	}
	if state.BatchID == "" {
		return nil, fmt.Errorf("%w: %s: missing batch_id", ErrInvalidData, id.String())
	}
	return &state, nil
}

// List returns identifiers for a batch, oldest first.
func (s *MemoryStore) List(ctx context.Context, batchID string) ([]domain.CheckpointID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []domain.CheckpointID
	for id := range s.records {
		if id.BatchID == batchID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Timestamp < ids[j].Timestamp })
	return ids, nil
}

// Delete removes one record.
func (s *MemoryStore) Delete(ctx context.Context, id domain.CheckpointID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// SweepOlderThan removes records older than the cutoff.
func (s *MemoryStore) SweepOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	limit := cutoff.UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id := range s.records {
		if id.Timestamp < limit {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

// Corrupt overwrites a record with undecodable bytes. Test helper.
func (s *MemoryStore) Corrupt(id domain.CheckpointID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; ok {
		s.records[id] = []byte("{not json")
	}
}

// Len reports the number of stored records. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
