package domain

import "time"

// ItemStatus is the processing state of a single work item.
type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusProcessing ItemStatus = "processing"
	StatusSuccess    ItemStatus = "success"
	StatusFailed     ItemStatus = "failed"
	StatusSkipped    ItemStatus = "skipped"
	StatusRetrying   ItemStatus = "retrying"
)

// Terminal reports whether the status is a final state for an item.
func (s ItemStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// FileProgress holds the processing state of one document within a batch.
// It is mutated only through the progress tracker's update entry point.
type FileProgress struct {
	Path         string        `json:"path"`
	Status       ItemStatus    `json:"status"`
	StartTime    *time.Time    `json:"start_time,omitempty"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	RetryCount   int           `json:"retry_count,omitempty"`
	Size         int64         `json:"size,omitempty"`
}

// Clone returns a deep copy so snapshots never alias tracker state.
func (p *FileProgress) Clone() *FileProgress {
	cp := *p
	if p.StartTime != nil {
		t := *p.StartTime
		cp.StartTime = &t
	}
	if p.EndTime != nil {
		t := *p.EndTime
		cp.EndTime = &t
	}
	return &cp
}
