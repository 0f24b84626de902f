package recovery

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Action is the recommended recovery move for a classified failure.
type Action string

const (
	ActionRetry            Action = "retry"
	ActionSkipItem         Action = "skip_item"
	ActionAbortBatch       Action = "abort_batch"
	ActionFailFast         Action = "fail_fast"
	ActionIgnore           Action = "ignore"
	ActionUserIntervention Action = "user_intervention"
)

// RecoveryStrategy describes how the orchestrator should react to a
// classified failure, with a human-readable remediation hint.
type RecoveryStrategy struct {
	Action      Action
	MaxRetries  int
	RetryDelay  time.Duration
	UserMessage string
}

func strategyKey(c Category, s Severity) string {
	return fmt.Sprintf("%s/%s", c, s)
}

// strategyTable is keyed by (category, severity); StrategyFor falls
// back to a per-category default when no exact entry exists.
var strategyTable = map[string]RecoveryStrategy{
	strategyKey(CategoryDependency, SeverityFatal): {
		Action:      ActionFailFast,
		UserMessage: "critical dependencies missing - check the pandoc and xelatex installation",
	},
	strategyKey(CategoryFile, SeverityError): {
		Action: ActionSkipItem,
	},
	strategyKey(CategoryProcessing, SeverityError): {
		Action:     ActionRetry,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
	},
	strategyKey(CategoryTimeout, SeverityWarning): {
		Action:     ActionRetry,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	},
	strategyKey(CategorySystem, SeverityError): {
		Action:     ActionRetry,
		MaxRetries: 2,
		RetryDelay: 1 * time.Second,
	},
	strategyKey(CategoryResource, SeverityError): {
		Action:      ActionAbortBatch,
		UserMessage: "insufficient system resources - free up memory or disk space",
	},
	strategyKey(CategoryValidation, SeverityError): {
		Action: ActionSkipItem,
	},
}

var categoryFallback = map[Category]RecoveryStrategy{
	CategoryDependency: {
		Action:      ActionFailFast,
		UserMessage: "missing required dependencies",
	},
	CategoryFile:       {Action: ActionSkipItem},
	CategoryValidation: {Action: ActionSkipItem},
	CategoryTimeout:    {Action: ActionRetry, MaxRetries: 3, RetryDelay: time.Second},
	CategorySystem:     {Action: ActionRetry, MaxRetries: 3, RetryDelay: time.Second},
	CategoryProcessing: {Action: ActionRetry, MaxRetries: 2, RetryDelay: time.Second},
}

// StrategyFor returns the deterministic recovery strategy for a
// classified failure.
func StrategyFor(ce *ClassifiedError) RecoveryStrategy {
	if s, ok := strategyTable[strategyKey(ce.Category, ce.Severity)]; ok {
		return s
	}
	if s, ok := categoryFallback[ce.Category]; ok {
		return s
	}
	return RecoveryStrategy{Action: ActionSkipItem}
}

// ShouldRetry reports whether a classified failure is worth retrying.
// Fatal failures and validation failures never retry; file failures
// retry only when they look permission-flavored.
func ShouldRetry(ce *ClassifiedError) bool {
	if ce.Severity == SeverityFatal {
		return false
	}
	switch ce.Category {
	case CategoryValidation:
		return false
	case CategoryFile:
		lower := strings.ToLower(ce.Message)
		return strings.Contains(lower, "permission") || strings.Contains(lower, "access")
	case CategoryTimeout, CategorySystem, CategoryResource, CategoryProcessing:
		return true
	}
	return false
}

// Handler records classified failures, keeps aggregate counters, and
// forwards each one to the log sink.
type Handler struct {
	log *slog.Logger

	mu       sync.Mutex
	history  []*ClassifiedError
	counters map[string]int
}

// NewHandler creates a handler writing to the given logger.
func NewHandler(log *slog.Logger) *Handler {
	return &Handler{
		log:      log,
		counters: make(map[string]int),
	}
}

// Handle logs the failure, records it, and returns its recovery
// strategy.
func (h *Handler) Handle(ce *ClassifiedError) RecoveryStrategy {
	h.logError(ce)

	h.mu.Lock()
	h.history = append(h.history, ce)
	h.counters[strategyKey(ce.Category, ce.Severity)]++
	h.mu.Unlock()

	return StrategyFor(ce)
}

func (h *Handler) logError(ce *ClassifiedError) {
	attrs := []any{
		"category", string(ce.Category),
		"severity", string(ce.Severity),
		"item", ce.Item,
	}
	switch ce.Severity {
	case SeverityFatal, SeverityError:
		h.log.Error(ce.Message, attrs...)
	case SeverityWarning:
		h.log.Warn(ce.Message, attrs...)
	default:
		h.log.Info(ce.Message, attrs...)
	}
}

// History returns a copy of all classified failures seen so far.
func (h *Handler) History() []*ClassifiedError {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*ClassifiedError, len(h.history))
	copy(out, h.history)
	return out
}

// Counters returns a copy of the (category, severity) counters.
func (h *Handler) Counters() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int, len(h.counters))
	for k, v := range h.counters {
		out[k] = v
	}
	return out
}
