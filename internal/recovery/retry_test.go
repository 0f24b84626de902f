package recovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSleeper records requested delays without waiting.
type fakeSleeper struct {
	delays []time.Duration
	err    error
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

func TestEngine_SuccessFirstAttempt(t *testing.T) {
	sleeper := &fakeSleeper{}
	engine := NewEngine(DefaultRetryConfig(), sleeper, testLogger())

	res := engine.Execute(context.Background(), func(ctx context.Context) (any, error) {
		return "ok", nil
	})

	if !res.Success {
		t.Fatalf("expected success, got error %v", res.Err)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
	if res.Result != "ok" {
		t.Errorf("expected result ok, got %v", res.Result)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("expected no sleeps, got %d", len(sleeper.delays))
	}
}

func TestEngine_ExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 2.0,
		Policy:            PolicyExponential,
	}
	sleeper := &fakeSleeper{}
	engine := NewEngine(cfg, sleeper, testLogger())

	calls := 0
	failure := errors.New("conversion failed")
	res := engine.Execute(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		return nil, failure
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
	if !errors.Is(res.Err, failure) {
		t.Errorf("expected last error to surface, got %v", res.Err)
	}

	// N attempts mean N-1 sleeps, with exponential delays.
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(sleeper.delays))
	}
	for i, d := range want {
		if sleeper.delays[i] != d {
			t.Errorf("sleep %d: expected %v, got %v", i, d, sleeper.delays[i])
		}
	}
}

func TestEngine_SucceedsMidway(t *testing.T) {
	cfg := DefaultRetryConfig()
	sleeper := &fakeSleeper{}
	engine := NewEngine(cfg, sleeper, testLogger())

	calls := 0
	res := engine.Execute(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("transient")
		}
		return 42, nil
	})

	if !res.Success {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", res.Attempts)
	}
	if len(sleeper.delays) != 1 {
		t.Errorf("expected 1 sleep, got %d", len(sleeper.delays))
	}
}

func TestEngine_ZeroAttempts(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 0
	engine := NewEngine(cfg, &fakeSleeper{}, testLogger())

	called := false
	res := engine.Execute(context.Background(), func(ctx context.Context) (any, error) {
		called = true
		return nil, nil
	})

	if called {
		t.Error("work must not run with zero attempts configured")
	}
	if res.Success {
		t.Error("expected failure result")
	}
	if res.Attempts != 0 {
		t.Errorf("expected 0 attempts, got %d", res.Attempts)
	}
	if !errors.Is(res.Err, ErrNoAttempts) {
		t.Errorf("expected ErrNoAttempts, got %v", res.Err)
	}
}

func TestEngine_OnRetryHook(t *testing.T) {
	cfg := DefaultRetryConfig()
	engine := NewEngine(cfg, &fakeSleeper{}, testLogger())

	var hooked []int
	engine.OnRetry = func(attempt int, err error) {
		hooked = append(hooked, attempt)
	}

	engine.Execute(context.Background(), func(ctx context.Context) (any, error) {
		return nil, errors.New("always fails")
	})

	// Hook fires before attempts 2 and 3, never before the first.
	if len(hooked) != 2 || hooked[0] != 2 || hooked[1] != 3 {
		t.Errorf("expected hooks for attempts [2 3], got %v", hooked)
	}
}

func TestEngine_InterruptedBackoff(t *testing.T) {
	cfg := DefaultRetryConfig()
	sleeper := &fakeSleeper{err: context.Canceled}
	engine := NewEngine(cfg, sleeper, testLogger())

	failure := errors.New("transient")
	calls := 0
	res := engine.Execute(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		return nil, failure
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	// First backoff is interrupted, so only one attempt runs.
	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
	// The work failure is reported, not the cancellation.
	if !errors.Is(res.Err, failure) {
		t.Errorf("expected work error, got %v", res.Err)
	}
}

func TestContextSleeper_CancelWakesEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := ContextSleeper{}.Sleep(ctx, 10*time.Second)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("sleep did not wake early, took %v", elapsed)
	}
}
