// Package progress provides a concurrency-safe ledger of per-item
// processing state and aggregate batch statistics.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/huyngo/docpress/internal/core/domain"
)

// Report is a consistent snapshot of batch progress. All fields are
// computed under one lock acquisition, so they never tear.
type Report struct {
	TotalFiles     int
	CompletedFiles int
	SuccessCount   int
	FailedCount    int
	SkippedCount   int
	Percentage     float64
	Elapsed        time.Duration
	ETA            time.Duration
	ETAKnown       bool
	CurrentItem    string
	Speed          float64 // items per second
	ErrorRate      float64 // failed / completed, percent
}

// Statistics holds detailed batch metrics.
type Statistics struct {
	TotalFiles          int
	SuccessfulFiles     int
	FailedFiles         int
	SkippedFiles        int
	TotalProcessingTime time.Duration
	AverageFileTime     time.Duration
	TotalFileSize       int64
	SpeedItemsPerSec    float64
	SpeedBytesPerSec    float64
	ErrorRate           float64
	RetryAttempts       int
	StatusDistribution  map[domain.ItemStatus]int
}

// UpdateOption attaches optional data to a tracker update.
type UpdateOption func(*updateOpts)

type updateOpts struct {
	errMsg string
	size   int64
}

// WithError records the failure message for the item.
func WithError(msg string) UpdateOption {
	return func(o *updateOpts) { o.errMsg = msg }
}

// WithSize records the item size in bytes for throughput statistics.
func WithSize(size int64) UpdateOption {
	return func(o *updateOpts) { o.size = size }
}

// Tracker is a thread-safe map from item key to FileProgress. All
// mutation goes through Start, Update, Seed, and Reset, which enforce
// mutual exclusion internally.
type Tracker struct {
	mu        sync.Mutex
	files     map[string]*domain.FileProgress
	startTime time.Time
	started   bool
	total     int
	current   string
	durations []time.Duration
	sizes     []int64

	now func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		files: make(map[string]*domain.FileProgress),
		now:   time.Now,
	}
}

// Start initializes tracking for a batch of the given size, clearing
// any previous state.
func (t *Tracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = make(map[string]*domain.FileProgress)
	t.total = total
	t.startTime = t.now()
	t.started = true
	t.current = ""
	t.durations = nil
	t.sizes = nil
}

// Seed restores tracker state from a checkpointed batch, keeping the
// recorded per-item states so completed work is not redone.
func (t *Tracker) Seed(state *domain.BatchState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = make(map[string]*domain.FileProgress, len(state.Files))
	for k, v := range state.Files {
		fp := v.Clone()
		// In-flight items from the interrupted run restart from scratch.
		if !fp.Status.Terminal() {
			fp.Status = domain.StatusPending
			fp.StartTime = nil
		}
		t.files[k] = fp
		if fp.Status.Terminal() && fp.Duration > 0 {
			t.durations = append(t.durations, fp.Duration)
			if fp.Size > 0 {
				t.sizes = append(t.sizes, fp.Size)
			}
		}
	}
	t.total = state.TotalFiles
	t.startTime = t.now()
	t.started = true
	t.current = ""
}

// Update records a status transition for one item.
func (t *Tracker) Update(key string, status domain.ItemStatus, opts ...UpdateOption) {
	var o updateOpts
	for _, opt := range opts {
		opt(&o)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	fp, ok := t.files[key]
	if !ok {
		fp = &domain.FileProgress{Path: key, Status: domain.StatusPending}
		t.files[key] = fp
	}

	old := fp.Status
	if o.errMsg != "" {
		fp.ErrorMessage = o.errMsg
	}
	if o.size > 0 {
		fp.Size = o.size
	}

	switch {
	case status == domain.StatusProcessing && old == domain.StatusPending:
		fp.Status = status
		start := now
		fp.StartTime = &start
		t.current = key

	case status.Terminal():
		fp.Status = status
		end := now
		fp.EndTime = &end
		if fp.StartTime != nil {
			fp.Duration = end.Sub(*fp.StartTime)
			t.durations = append(t.durations, fp.Duration)
			if fp.Size > 0 {
				t.sizes = append(t.sizes, fp.Size)
			}
		}
		if t.current == key {
			t.current = ""
		}

	case status == domain.StatusRetrying:
		fp.Status = status
		fp.RetryCount++

	default:
		fp.Status = status
	}
}

// Get returns a copy of one item's progress.
func (t *Tracker) Get(key string) (*domain.FileProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fp, ok := t.files[key]
	if !ok {
		return nil, false
	}
	return fp.Clone(), true
}

// Snapshot returns a deep copy of all per-item states, suitable for
// checkpoint persistence.
func (t *Tracker) Snapshot() map[string]*domain.FileProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]*domain.FileProgress, len(t.files))
	for k, v := range t.files {
		out[k] = v.Clone()
	}
	return out
}

// Report computes a consistent progress snapshot.
func (t *Tracker) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return Report{}
	}

	counts := make(map[domain.ItemStatus]int)
	for _, fp := range t.files {
		counts[fp.Status]++
	}

	completed := counts[domain.StatusSuccess] + counts[domain.StatusFailed] + counts[domain.StatusSkipped]
	elapsed := t.now().Sub(t.startTime)

	r := Report{
		TotalFiles:     t.total,
		CompletedFiles: completed,
		SuccessCount:   counts[domain.StatusSuccess],
		FailedCount:    counts[domain.StatusFailed],
		SkippedCount:   counts[domain.StatusSkipped],
		Elapsed:        elapsed,
		CurrentItem:    t.current,
	}

	if t.total > 0 {
		r.Percentage = float64(completed) / float64(t.total) * 100
	}
	if elapsed > 0 {
		r.Speed = float64(completed) / elapsed.Seconds()
	}
	if r.Speed > 0 {
		remaining := float64(t.total-completed) / r.Speed
		r.ETA = time.Duration(remaining * float64(time.Second))
		r.ETAKnown = true
	}
	if completed > 0 {
		r.ErrorRate = float64(counts[domain.StatusFailed]) / float64(completed) * 100
	}
	return r
}

// Statistics computes detailed batch metrics.
func (t *Tracker) Statistics() Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return Statistics{StatusDistribution: map[domain.ItemStatus]int{}}
	}

	counts := make(map[domain.ItemStatus]int)
	retries := 0
	for _, fp := range t.files {
		counts[fp.Status]++
		retries += fp.RetryCount
	}

	completed := counts[domain.StatusSuccess] + counts[domain.StatusFailed] + counts[domain.StatusSkipped]
	elapsed := t.now().Sub(t.startTime)

	var totalTime time.Duration
	for _, d := range t.durations {
		totalTime += d
	}
	var totalSize int64
	for _, s := range t.sizes {
		totalSize += s
	}

	st := Statistics{
		TotalFiles:          t.total,
		SuccessfulFiles:     counts[domain.StatusSuccess],
		FailedFiles:         counts[domain.StatusFailed],
		SkippedFiles:        counts[domain.StatusSkipped],
		TotalProcessingTime: totalTime,
		TotalFileSize:       totalSize,
		RetryAttempts:       retries,
		StatusDistribution:  counts,
	}
	if len(t.durations) > 0 {
		st.AverageFileTime = totalTime / time.Duration(len(t.durations))
	}
	if elapsed > 0 {
		st.SpeedItemsPerSec = float64(completed) / elapsed.Seconds()
		st.SpeedBytesPerSec = float64(totalSize) / elapsed.Seconds()
	}
	if completed > 0 {
		st.ErrorRate = float64(counts[domain.StatusFailed]) / float64(completed) * 100
	}
	return st
}

// Pending returns the keys of items not yet in a terminal state.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for k, fp := range t.files {
		if !fp.Status.Terminal() {
			out = append(out, k)
		}
	}
	return out
}

// Reset clears all tracking state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = make(map[string]*domain.FileProgress)
	t.startTime = time.Time{}
	t.started = false
	t.total = 0
	t.current = ""
	t.durations = nil
	t.sizes = nil
}

// FormatDuration renders a duration for progress display.
func FormatDuration(d time.Duration) string {
	s := d.Seconds()
	switch {
	case s < 60:
		return fmt.Sprintf("%.1fs", s)
	case s < 3600:
		return fmt.Sprintf("%dm %ds", int(s)/60, int(s)%60)
	default:
		return fmt.Sprintf("%dh %dm", int(s)/3600, (int(s)%3600)/60)
	}
}
