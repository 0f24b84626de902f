// Package checkpoint provides durable, atomic snapshot and restore of
// batch state for crash recovery.
package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/huyngo/docpress/internal/core/domain"
)

var (
	// ErrNotFound is returned when a checkpoint record doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrInvalidData is returned when a record exists but cannot be
	// decoded into a batch state.
	ErrInvalidData = errors.New("invalid checkpoint data")
)

// Store persists batch state snapshots. A single Save is atomic: no
// reader ever observes a partial record.
type Store interface {
	// Save writes one snapshot and returns its identifier.
	Save(ctx context.Context, state *domain.BatchState) (domain.CheckpointID, error)

	// Load restores the snapshot named by id.
	Load(ctx context.Context, id domain.CheckpointID) (*domain.BatchState, error)

	// List returns all identifiers recorded for a batch, in ascending
	// timestamp order.
	List(ctx context.Context, batchID string) ([]domain.CheckpointID, error)

	// Delete removes one record. Deleting an absent record is not an
	// error.
	Delete(ctx context.Context, id domain.CheckpointID) error

	// SweepOlderThan removes records older than the cutoff across all
	// batches and reports how many were removed.
	SweepOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
