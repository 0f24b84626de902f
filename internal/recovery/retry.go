package recovery

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrNoAttempts is returned when the configuration allows zero attempts.
var ErrNoAttempts = errors.New("retry: no attempts configured")

// Sleeper is the suspension primitive separating the blocking retry
// variant from the cooperative one. Both share the same engine so the
// backoff logic cannot diverge.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// BlockingSleeper waits synchronously. It suspends only the calling
// goroutine and holds no shared state.
type BlockingSleeper struct{}

func (BlockingSleeper) Sleep(_ context.Context, d time.Duration) error {
	time.Sleep(d)
	return nil
}

// ContextSleeper waits cooperatively and wakes early on cancellation.
type ContextSleeper struct{}

func (ContextSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OperationResult carries the outcome of one retried execution.
type OperationResult struct {
	Success   bool
	Result    any
	Err       error
	Attempts  int
	TotalTime time.Duration
}

// Work is a unit of work the engine retries.
type Work func(ctx context.Context) (any, error)

// Engine executes work with bounded attempts and configurable backoff.
type Engine struct {
	cfg     RetryConfig
	sleeper Sleeper
	log     *slog.Logger

	// OnRetry, when set, is invoked before each re-attempt with the
	// upcoming attempt number and the error that caused it.
	OnRetry func(attempt int, err error)
}

// NewEngine creates a retry engine with the given suspension primitive.
func NewEngine(cfg RetryConfig, sleeper Sleeper, log *slog.Logger) *Engine {
	if sleeper == nil {
		sleeper = BlockingSleeper{}
	}
	return &Engine{cfg: cfg, sleeper: sleeper, log: log}
}

// Config returns the engine's retry configuration.
func (e *Engine) Config() RetryConfig {
	return e.cfg
}

// Execute runs work up to MaxAttempts times, waiting between attempts
// according to the backoff policy. The work function is never invoked
// when MaxAttempts is zero or negative.
func (e *Engine) Execute(ctx context.Context, work Work) OperationResult {
	if e.cfg.MaxAttempts <= 0 {
		return OperationResult{Success: false, Err: ErrNoAttempts, Attempts: 0}
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 && e.OnRetry != nil {
			e.OnRetry(attempt, lastErr)
		}

		result, err := work(ctx)
		if err == nil {
			return OperationResult{
				Success:   true,
				Result:    result,
				Attempts:  attempt,
				TotalTime: time.Since(start),
			}
		}

		lastErr = err
		e.log.Warn("Attempt failed",
			"attempt", attempt,
			"max_attempts", e.cfg.MaxAttempts,
			"error", err)

		if attempt == e.cfg.MaxAttempts {
			break
		}

		delay := Delay(attempt, e.cfg)
		if err := e.sleeper.Sleep(ctx, delay); err != nil {
			// Cancelled during backoff. Stop retrying; the last work
			// failure remains the reported error.
			e.log.Debug("Backoff interrupted", "error", err)
			return OperationResult{
				Success:   false,
				Err:       lastErr,
				Attempts:  attempt,
				TotalTime: time.Since(start),
			}
		}
	}

	return OperationResult{
		Success:   false,
		Err:       lastErr,
		Attempts:  e.cfg.MaxAttempts,
		TotalTime: time.Since(start),
	}
}
