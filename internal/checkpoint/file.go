package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/huyngo/docpress/internal/core/domain"
)

const manifestName = "manifest.json"

// manifestEntry records one checkpoint with structured fields. Batch id
// and checkpoint type are never encoded into, or parsed out of, the
// record filename.
type manifestEntry struct {
	Timestamp int64                 `json:"timestamp"`
	Type      domain.CheckpointType `json:"type"`
	File      string                `json:"file"`
}

type manifest struct {
	Batches map[string][]manifestEntry `json:"batches"`
}

// FileStore persists checkpoints as JSON files in a directory. Every
// write goes to a temporary file first and is renamed into place, so a
// reader never observes a partial record.
type FileStore struct {
	dir string
	log *slog.Logger

	mu sync.Mutex // serializes manifest read-modify-write
}

// NewFileStore creates the checkpoint directory if needed.
func NewFileStore(dir string, log *slog.Logger) (*FileStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "docpress_checkpoints")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint dir: %w", err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes one snapshot atomically and records it in the manifest.
func (s *FileStore) Save(ctx context.Context, state *domain.BatchState) (domain.CheckpointID, error) {
	id := domain.CheckpointID{
		BatchID:   state.BatchID,
		Timestamp: time.Now().UnixNano(),
		Type:      state.CheckpointType,
	}
	state.LastUpdated = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return domain.CheckpointID{}, fmt.Errorf("failed to encode batch state: %w", err)
	}

	name := fmt.Sprintf("%s_%d.json", sanitize(state.BatchID), id.Timestamp)
	if err := s.writeAtomic(name, data); err != nil {
		return domain.CheckpointID{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readManifest()
	if err != nil {
		return domain.CheckpointID{}, err
	}
	m.Batches[state.BatchID] = append(m.Batches[state.BatchID], manifestEntry{
		Timestamp: id.Timestamp,
		Type:      id.Type,
		File:      name,
	})
	if err := s.writeManifest(m); err != nil {
		return domain.CheckpointID{}, err
	}
	return id, nil
}

// Load restores one snapshot.
func (s *FileStore) Load(ctx context.Context, id domain.CheckpointID) (*domain.BatchState, error) {
	s.mu.Lock()
	m, err := s.readManifest()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	entry, ok := findEntry(m, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}

	data, err := os.ReadFile(filepath.Join(s.dir, entry.File))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id.String())
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
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

// List returns the recorded identifiers for a batch, oldest first.
func (s *FileStore) List(ctx context.Context, batchID string) ([]domain.CheckpointID, error) {
	s.mu.Lock()
	m, err := s.readManifest()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	entries := m.Batches[batchID]
	ids := make([]domain.CheckpointID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, domain.CheckpointID{BatchID: batchID, Timestamp: e.Timestamp, Type: e.Type})
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Timestamp < ids[j].Timestamp })
	return ids, nil
}

// Delete removes one record and its manifest entry.
func (s *FileStore) Delete(ctx context.Context, id domain.CheckpointID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readManifest()
	if err != nil {
		return err
	}

	entries := m.Batches[id.BatchID]
	kept := entries[:0]
	var removed []manifestEntry
	for _, e := range entries {
		if e.Timestamp == id.Timestamp && e.Type == id.Type {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		delete(m.Batches, id.BatchID)
	} else {
		m.Batches[id.BatchID] = kept
	}
	if err := s.writeManifest(m); err != nil {
		return err
	}

	for _, e := range removed {
		if err := os.Remove(filepath.Join(s.dir, e.File)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("Failed to remove checkpoint file", "file", e.File, "error", err)
		}
	}
	return nil
}

// SweepOlderThan removes records older than the cutoff across all
// batches.
func (s *FileStore) SweepOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readManifest()
	if err != nil {
		return 0, err
	}

	limit := cutoff.UnixNano()
	removed := 0
	for batchID, entries := range m.Batches {
		kept := entries[:0]
		for _, e := range entries {
			if e.Timestamp < limit {
				if err := os.Remove(filepath.Join(s.dir, e.File)); err != nil && !errors.Is(err, fs.ErrNotExist) {
					s.log.Warn("Failed to remove checkpoint file", "file", e.File, "error", err)
				}
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(m.Batches, batchID)
		} else {
			m.Batches[batchID] = kept
		}
	}
	if removed > 0 {
		if err := s.writeManifest(m); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (s *FileStore) readManifest() (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return &manifest{Batches: make(map[string][]manifestEntry)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint manifest: %w", err)
	}
	if m.Batches == nil {
		m.Batches = make(map[string][]manifestEntry)
	}
	return &m, nil
}

func (s *FileStore) writeManifest(m *manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint manifest: %w", err)
	}
	return s.writeAtomic(manifestName, data)
}

// writeAtomic writes to a temporary file in the same directory and
// renames it into place.
func (s *FileStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize checkpoint: %w", err)
	}
	return nil
}

func findEntry(m *manifest, id domain.CheckpointID) (manifestEntry, bool) {
	for _, e := range m.Batches[id.BatchID] {
		if e.Timestamp == id.Timestamp && e.Type == id.Type {
			return e, true
		}
	}
	return manifestEntry{}, false
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
