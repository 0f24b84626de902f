package recovery

import (
	"errors"
	"testing"
)

func classified(c Category, s Severity, msg string) *ClassifiedError {
	return &ClassifiedError{Category: c, Severity: s, Message: msg, cause: errors.New(msg)}
}

func TestStrategyFor_ExactEntries(t *testing.T) {
	cases := []struct {
		category Category
		severity Severity
		action   Action
	}{
		{CategoryDependency, SeverityFatal, ActionFailFast},
		{CategoryFile, SeverityError, ActionSkipItem},
		{CategoryProcessing, SeverityError, ActionRetry},
		{CategoryTimeout, SeverityWarning, ActionRetry},
		{CategorySystem, SeverityError, ActionRetry},
		{CategoryResource, SeverityError, ActionAbortBatch},
		{CategoryValidation, SeverityError, ActionSkipItem},
	}

	for _, tc := range cases {
		s := StrategyFor(classified(tc.category, tc.severity, "x"))
		if s.Action != tc.action {
			t.Errorf("%s/%s: expected %s, got %s", tc.category, tc.severity, tc.action, s.Action)
		}
	}
}

func TestStrategyFor_CategoryFallback(t *testing.T) {
	// No exact (file_error, warning) entry; falls back to the category
	// default.
	s := StrategyFor(classified(CategoryFile, SeverityWarning, "x"))
	if s.Action != ActionSkipItem {
		t.Errorf("expected skip_item fallback, got %s", s.Action)
	}

	s = StrategyFor(classified(CategoryDependency, SeverityError, "x"))
	if s.Action != ActionFailFast {
		t.Errorf("expected fail_fast fallback, got %s", s.Action)
	}
}

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		ce   *ClassifiedError
		want bool
	}{
		{"fatal never retries", classified(CategoryDependency, SeverityFatal, "pandoc missing"), false},
		{"fatal timeout never retries", classified(CategoryTimeout, SeverityFatal, "timed out"), false},
		{"validation never retries", classified(CategoryValidation, SeverityError, "bad input"), false},
		{"plain file error no retry", classified(CategoryFile, SeverityError, "file not found"), false},
		{"permission file error retries", classified(CategoryFile, SeverityError, "permission denied on output"), true},
		{"access file error retries", classified(CategoryFile, SeverityError, "access denied"), true},
		{"timeout retries", classified(CategoryTimeout, SeverityWarning, "timed out"), true},
		{"system retries", classified(CategorySystem, SeverityError, "boom"), true},
		{"resource retries", classified(CategoryResource, SeverityError, "oom"), true},
		{"processing retries", classified(CategoryProcessing, SeverityError, "latex error"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRetry(tc.ce); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestHandler_RecordsHistoryAndCounters(t *testing.T) {
	h := NewHandler(testLogger())

	h.Handle(classified(CategoryFile, SeverityError, "first"))
	h.Handle(classified(CategoryFile, SeverityError, "second"))
	h.Handle(classified(CategoryTimeout, SeverityWarning, "third"))

	hist := h.History()
	if len(hist) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(hist))
	}
	if hist[0].Message != "first" {
		t.Errorf("history order wrong, got %s first", hist[0].Message)
	}

	counters := h.Counters()
	if counters["file_error/error"] != 2 {
		t.Errorf("expected 2 file errors, got %d", counters["file_error/error"])
	}
	if counters["timeout_error/warning"] != 1 {
		t.Errorf("expected 1 timeout, got %d", counters["timeout_error/warning"])
	}
}

func TestHandler_ReturnsStrategy(t *testing.T) {
	h := NewHandler(testLogger())
	s := h.Handle(classified(CategoryResource, SeverityError, "no space left"))
	if s.Action != ActionAbortBatch {
		t.Errorf("expected abort_batch, got %s", s.Action)
	}
}
