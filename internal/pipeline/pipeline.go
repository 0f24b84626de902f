// Package pipeline orchestrates a batch conversion run: health gating,
// discovery, validation, retry-wrapped execution, progress tracking,
// checkpointing, and reporting.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/huyngo/docpress/internal/core/domain"
	"github.com/huyngo/docpress/internal/monitoring/health"
	"github.com/huyngo/docpress/internal/monitoring/metrics"
	"github.com/huyngo/docpress/internal/progress"
	"github.com/huyngo/docpress/internal/recovery"
	"github.com/huyngo/docpress/internal/validate"
)

// Status is the lifecycle state of one orchestrator run.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Collaborator contracts consumed by the orchestrator.
type (
	// HealthGate is queried once before any work starts.
	HealthGate interface {
		Check(ctx context.Context) health.CheckResult
	}

	// Discoverer produces the ordered sequence of work items.
	Discoverer interface {
		Discover(ctx context.Context, inputDir string) ([]string, error)
	}

	// Validator decides whether an item may enter the batch.
	Validator interface {
		Validate(item string) validate.Result
	}

	// Executor performs the actual conversion for one item. It is the
	// unit of work the retry engine wraps.
	Executor interface {
		Execute(ctx context.Context, item string) (domain.ConversionResult, error)
	}

	// Checkpointer persists batch state for crash recovery.
	Checkpointer interface {
		ShouldAutoSave(batchID string) bool
		Save(ctx context.Context, state *domain.BatchState) (domain.CheckpointID, error)
		LoadLatest(ctx context.Context, batchID string) (*domain.BatchState, error)
	}
)

// BatchResult aggregates the outcome of one run.
type BatchResult struct {
	BatchID    string
	Status     Status
	TotalFiles int
	Successful int
	Failed     int
	Skipped    int
	Duration   time.Duration
	Results    []domain.ConversionResult
	Errors     []*recovery.ClassifiedError
}

// Config holds the parameters of one batch run.
type Config struct {
	InputDir  string
	OutputDir string
	Retry     recovery.RetryConfig
	// ResumeBatchID, when set, restores the latest checkpoint of that
	// batch and skips items it already completed.
	ResumeBatchID string
}

// Orchestrator drives the batch state machine.
type Orchestrator struct {
	cfg Config

	healthGate HealthGate
	discoverer Discoverer
	validator  Validator
	executor   Executor
	ckpt       Checkpointer // nil disables checkpointing

	retry   *recovery.Engine
	handler *recovery.Handler
	tracker *progress.Tracker
	log     *slog.Logger

	mu     sync.Mutex
	status Status
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Health       HealthGate
	Discoverer   Discoverer
	Validator    Validator
	Executor     Executor
	Checkpointer Checkpointer
	Retry        *recovery.Engine
	Logger       *slog.Logger
}

// New creates an orchestrator in the NOT_STARTED state.
func New(cfg Config, deps Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		healthGate: deps.Health,
		discoverer: deps.Discoverer,
		validator:  deps.Validator,
		executor:   deps.Executor,
		ckpt:       deps.Checkpointer,
		retry:      deps.Retry,
		handler:    recovery.NewHandler(deps.Logger),
		tracker:    progress.NewTracker(),
		log:        deps.Logger,
		status:     StatusNotStarted,
	}
	if o.retry == nil {
		o.retry = recovery.NewEngine(recovery.DefaultRetryConfig(), recovery.ContextSleeper{}, deps.Logger)
	}
	return o
}

// Status returns the current lifecycle state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) setStatus(s Status) {
	o.mu.Lock()
	o.status = s
	o.mu.Unlock()
}

// Tracker exposes the progress ledger for live reporting.
func (o *Orchestrator) Tracker() *progress.Tracker {
	return o.tracker
}

// Run executes the full pipeline. Failures inside a single item's
// execution never escape the per-item loop; failures during setup are
// classified and folded into a one-error FAILED result that preserves
// any partial results.
func (o *Orchestrator) Run(ctx context.Context) BatchResult {
	o.setStatus(StatusRunning)
	start := time.Now()

	res, setupErr := o.run(ctx, start)
	if setupErr != nil {
		ce := recovery.Classify(setupErr, "")
		o.handler.Handle(ce)
		metrics.ClassifiedErrors.WithLabelValues(string(ce.Category), string(ce.Severity)).Inc()

		o.setStatus(StatusFailed)
		res.Status = StatusFailed
		res.Errors = append(res.Errors, ce)
		res.Duration = time.Since(start)
		return res
	}

	res.Duration = time.Since(start)
	o.logSummary(res)
	return res
}

// run performs setup and the per-item loop. The returned error covers
// setup stages only; per-item failures are folded into the result.
func (o *Orchestrator) run(ctx context.Context, start time.Time) (BatchResult, error) {
	res := BatchResult{Status: StatusRunning}

	// Phase 1: health gate.
	hr := o.healthGate.Check(ctx)
	if hr.Status == health.StatusCritical {
		return res, fmt.Errorf("health check failed: %s", hr.Summary)
	}
	if hr.Status == health.StatusWarning {
		o.log.Warn("Health check reported warnings", "summary", hr.Summary)
	}

	// Phase 2: discovery.
	items, err := o.discoverer.Discover(ctx, o.cfg.InputDir)
	if err != nil {
		return res, fmt.Errorf("discovery failed: %w", err)
	}

	// Phase 3: validation filter.
	valid := items[:0:0]
	for _, item := range items {
		vr := o.validator.Validate(item)
		if vr.IsValid {
			valid = append(valid, item)
			continue
		}
		o.log.Warn("Dropping invalid item", "item", item, "errors", vr.Errors)
	}

	if len(valid) == 0 {
		o.log.Warn("No valid items to process", "input_dir", o.cfg.InputDir)
		o.setStatus(StatusCompleted)
		res.Status = StatusCompleted
		return res, nil
	}

	// Phase 4: batch identity and (optionally) checkpoint resume.
	state, err := o.prepareBatch(ctx, valid, start)
	if err != nil {
		return res, err
	}
	res.BatchID = state.BatchID
	res.TotalFiles = len(valid)

	// Phase 5: per-item loop.
	cancelled, aborted := o.processItems(ctx, valid, state, &res)

	// Phase 6: finalize. COMPLETED is reserved for runs that attempted
	// every item; an aborted batch ends FAILED with an error-state
	// checkpoint, and a cancelled batch keeps its last auto-save type so
	// it can be resumed.
	switch {
	case aborted:
		state.CheckpointType = domain.CheckpointErrorState
		o.checkpoint(ctx, state, true)
		o.setStatus(StatusFailed)
		res.Status = StatusFailed
	case cancelled:
		o.checkpoint(ctx, state, true)
		o.setStatus(StatusCancelled)
		res.Status = StatusCancelled
	default:
		state.CheckpointType = domain.CheckpointBatchComplete
		o.checkpoint(ctx, state, true)
		o.setStatus(StatusCompleted)
		res.Status = StatusCompleted
	}
	return res, nil
}

// prepareBatch seeds tracker and batch state, restoring a checkpoint
// when resuming.
func (o *Orchestrator) prepareBatch(ctx context.Context, items []string, start time.Time) (*domain.BatchState, error) {
	if o.cfg.ResumeBatchID != "" && o.ckpt != nil {
		prior, err := o.ckpt.LoadLatest(ctx, o.cfg.ResumeBatchID)
		if err != nil {
			return nil, fmt.Errorf("failed to restore checkpoint for %s: %w", o.cfg.ResumeBatchID, err)
		}
		if prior != nil {
			o.log.Info("Resuming batch from checkpoint",
				"batch_id", prior.BatchID,
				"processed", prior.ProcessedFiles,
				"total", prior.TotalFiles)
			o.tracker.Seed(prior)
			// The per-item loop recounts restored items, so the
			// counters start from zero.
			prior.ProcessedFiles = 0
			prior.FailedFiles = 0
			prior.SkippedFiles = 0
			prior.CheckpointType = domain.CheckpointRecoveryPoint
			return prior, nil
		}
		o.log.Warn("No usable checkpoint found, starting fresh", "batch_id", o.cfg.ResumeBatchID)
	}

	o.tracker.Start(len(items))
	for _, item := range items {
		o.tracker.Update(item, domain.StatusPending)
	}

	state := &domain.BatchState{
		BatchID:        domain.NewBatchID(),
		InputDir:       o.cfg.InputDir,
		OutputDir:      o.cfg.OutputDir,
		TotalFiles:     len(items),
		StartTime:      start,
		Files:          o.tracker.Snapshot(),
		CheckpointType: domain.CheckpointBatchStart,
	}
	o.checkpoint(ctx, state, true)
	state.CheckpointType = domain.CheckpointFileProcessed
	return state, nil
}

// processItems runs the retry-wrapped execution for every item and
// reports whether the run was cancelled or aborted mid-batch.
func (o *Orchestrator) processItems(ctx context.Context, items []string, state *domain.BatchState, res *BatchResult) (cancelled, aborted bool) {
	for _, item := range items {
		// Cancellation is observed between items, never mid-attempt.
		if ctx.Err() != nil {
			o.log.Info("Batch cancelled", "batch_id", state.BatchID)
			return true, false
		}

		if prior, ok := o.tracker.Get(item); ok && prior.Status.Terminal() && prior.Status != domain.StatusFailed {
			// Completed in the interrupted run this batch resumes.
			o.countOutcome(state, res, domain.ConversionResult{
				InputPath: item,
				Status:    outcomeFor(prior.Status),
				Message:   "restored from checkpoint",
			}, false)
			continue
		}

		outcome := o.processItem(ctx, item, state, res)
		o.countOutcome(state, res, outcome, true)
		o.syncState(state)
		o.checkpoint(ctx, state, false)

		if outcome.Status == domain.ConversionFailed && o.shouldAbort(res) {
			o.log.Error("Aborting batch on unrecoverable failure", "item", item)
			return false, true
		}
	}
	return false, false
}

// processItem wraps one execution in the retry engine and classifies
// the failure on exhaustion.
func (o *Orchestrator) processItem(ctx context.Context, item string, state *domain.BatchState, res *BatchResult) domain.ConversionResult {
	o.tracker.Update(item, domain.StatusProcessing)

	first := true
	opRes := o.retry.Execute(ctx, func(ctx context.Context) (any, error) {
		if !first {
			o.tracker.Update(item, domain.StatusRetrying)
			metrics.RetryAttempts.Inc()
		}
		first = false
		return o.executor.Execute(ctx, item)
	})

	if opRes.Success {
		outcome := opRes.Result.(domain.ConversionResult)
		outcome.Attempts = opRes.Attempts
		outcome.Duration = opRes.TotalTime
		return outcome
	}

	ce := recovery.Classify(opRes.Err, item)
	strat := o.handler.Handle(ce)
	metrics.ClassifiedErrors.WithLabelValues(string(ce.Category), string(ce.Severity)).Inc()
	res.Errors = append(res.Errors, ce)
	if strat.UserMessage != "" {
		o.log.Warn(strat.UserMessage, "item", item, "action", string(strat.Action))
	}

	return domain.ConversionResult{
		InputPath:   item,
		Status:      domain.ConversionFailed,
		Message:     fmt.Sprintf("processing failed after %d attempts", opRes.Attempts),
		ErrorDetail: opRes.Err.Error(),
		Attempts:    opRes.Attempts,
		Duration:    opRes.TotalTime,
	}
}

// countOutcome updates the tracker, counters, and metrics for one item
// outcome.
func (o *Orchestrator) countOutcome(state *domain.BatchState, res *BatchResult, outcome domain.ConversionResult, record bool) {
	if record {
		res.Results = append(res.Results, outcome)
	}

	switch outcome.Status {
	case domain.ConversionSuccess:
		res.Successful++
		state.ProcessedFiles++
		if record {
			o.tracker.Update(outcome.InputPath, domain.StatusSuccess, progress.WithSize(outcome.Size))
			metrics.ItemsProcessed.WithLabelValues("success").Inc()
			metrics.ConversionDuration.Observe(outcome.Duration.Seconds())
		}
	case domain.ConversionSkipped:
		res.Skipped++
		state.SkippedFiles++
		if record {
			o.tracker.Update(outcome.InputPath, domain.StatusSkipped)
			metrics.ItemsProcessed.WithLabelValues("skipped").Inc()
		}
	case domain.ConversionFailed:
		res.Failed++
		state.FailedFiles++
		if record {
			o.tracker.Update(outcome.InputPath, domain.StatusFailed, progress.WithError(outcome.ErrorDetail))
			metrics.ItemsProcessed.WithLabelValues("failed").Inc()
		}
	}

	metrics.BatchProgress.Set(o.tracker.Report().Percentage)
}

// shouldAbort inspects the most recent classified error for an
// abort-batch verdict. Fail-fast verdicts are escalated only when
// raised during setup; an item-scoped dependency failure marks the item
// failed and the batch continues.
func (o *Orchestrator) shouldAbort(res *BatchResult) bool {
	if len(res.Errors) == 0 {
		return false
	}
	last := res.Errors[len(res.Errors)-1]
	return recovery.StrategyFor(last).Action == recovery.ActionAbortBatch
}

// syncState refreshes the snapshot carried by the durable batch state.
func (o *Orchestrator) syncState(state *domain.BatchState) {
	state.Files = o.tracker.Snapshot()
	state.LastUpdated = time.Now()
}

// checkpoint saves batch state when due (or forced). Checkpoint
// failures never fail the batch.
func (o *Orchestrator) checkpoint(ctx context.Context, state *domain.BatchState, force bool) {
	if o.ckpt == nil {
		return
	}
	if !force && !o.ckpt.ShouldAutoSave(state.BatchID) {
		return
	}
	o.syncState(state)
	if _, err := o.ckpt.Save(ctx, state); err != nil {
		o.log.Warn("Checkpoint save failed", "batch_id", state.BatchID, "error", err)
		return
	}
	metrics.CheckpointSaves.Inc()
}

func (o *Orchestrator) logSummary(res BatchResult) {
	o.log.Info("Batch finished",
		"batch_id", res.BatchID,
		"status", string(res.Status),
		"total", res.TotalFiles,
		"successful", res.Successful,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"duration", res.Duration)
}

func outcomeFor(s domain.ItemStatus) domain.ConversionStatus {
	switch s {
	case domain.StatusSuccess:
		return domain.ConversionSuccess
	case domain.StatusSkipped:
		return domain.ConversionSkipped
	default:
		return domain.ConversionFailed
	}
}
