package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CheckpointType tags the reason a batch snapshot was taken. It is a
// semantic marker on the state itself; storage backends decide how (or
// whether) it appears in their keys.
type CheckpointType string

const (
	CheckpointBatchStart    CheckpointType = "batch_start"
	CheckpointFileProcessed CheckpointType = "file_processed"
	CheckpointBatchComplete CheckpointType = "batch_complete"
	CheckpointErrorState    CheckpointType = "error_state"
	CheckpointRecoveryPoint CheckpointType = "recovery_point"
)

// BatchState is the full durable state of one batch run. It is the unit
// of persistence for the checkpoint store.
type BatchState struct {
	BatchID        string                   `json:"batch_id"`
	InputDir       string                   `json:"input_dir"`
	OutputDir      string                   `json:"output_dir"`
	TotalFiles     int                      `json:"total_files"`
	ProcessedFiles int                      `json:"processed_files"`
	FailedFiles    int                      `json:"failed_files"`
	SkippedFiles   int                      `json:"skipped_files"`
	StartTime      time.Time                `json:"start_time"`
	LastUpdated    time.Time                `json:"last_updated"`
	Files          map[string]*FileProgress `json:"files"`
	Configuration  map[string]any           `json:"configuration,omitempty"`
	CheckpointType CheckpointType           `json:"checkpoint_type"`
}

// CheckpointID names one durable checkpoint record. The fields stay
// structured end to end; no store parses a filename to recover them.
type CheckpointID struct {
	BatchID   string         `json:"batch_id"`
	Timestamp int64          `json:"timestamp"` // unix nanoseconds
	Type      CheckpointType `json:"type"`
}

// String is for logs and display only, never for storage lookup.
func (id CheckpointID) String() string {
	return fmt.Sprintf("%s_%s_%d", id.BatchID, id.Type, id.Timestamp)
}

// NewBatchID generates a unique batch identifier.
func NewBatchID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("batch_%d_%s", time.Now().Unix(), suffix)
}
