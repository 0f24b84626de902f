package history

import (
	"context"
	"fmt"
	"time"
)

// BatchRecord is one finished batch run as stored in batch_runs.
type BatchRecord struct {
	ID         int64     `db:"id"`
	BatchID    string    `db:"batch_id"`
	Status     string    `db:"status"`
	InputDir   string    `db:"input_dir"`
	OutputDir  string    `db:"output_dir"`
	TotalFiles int       `db:"total_files"`
	Successful int       `db:"successful"`
	Failed     int       `db:"failed"`
	Skipped    int       `db:"skipped"`
	DurationMS int64     `db:"duration_ms"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}

// Repo persists batch run records.
type Repo struct {
	db *DB
}

// NewRepo creates a batch history repository.
func NewRepo(db *DB) *Repo {
	return &Repo{db: db}
}

// Record inserts one finished batch run. Re-recording the same batch
// updates the existing row.
func (r *Repo) Record(ctx context.Context, rec BatchRecord) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO batch_runs (
			batch_id, status, input_dir, output_dir,
			total_files, successful, failed, skipped,
			duration_ms, started_at, finished_at
		) VALUES (
			:batch_id, :status, :input_dir, :output_dir,
			:total_files, :successful, :failed, :skipped,
			:duration_ms, :started_at, :finished_at
		)
		ON CONFLICT (batch_id) DO UPDATE SET
			status      = EXCLUDED.status,
			total_files = EXCLUDED.total_files,
			successful  = EXCLUDED.successful,
			failed      = EXCLUDED.failed,
			skipped     = EXCLUDED.skipped,
			duration_ms = EXCLUDED.duration_ms,
			finished_at = EXCLUDED.finished_at`, rec)
	if err != nil {
		return fmt.Errorf("failed to record batch run: %w", err)
	}
	return nil
}

// Recent returns the most recently finished runs, newest first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []BatchRecord
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM batch_runs
		ORDER BY finished_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch runs: %w", err)
	}
	return out, nil
}

// Get returns one run by batch identifier.
func (r *Repo) Get(ctx context.Context, batchID string) (*BatchRecord, error) {
	var rec BatchRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT * FROM batch_runs WHERE batch_id = $1`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch run %s: %w", batchID, err)
	}
	return &rec, nil
}

// PurgeOlderThan deletes runs finished before the cutoff and returns
// how many rows were removed.
func (r *Repo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM batch_runs WHERE finished_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge batch runs: %w", err)
	}
	return res.RowsAffected()
}
