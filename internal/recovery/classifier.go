package recovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// Category groups failures by their origin.
type Category string

const (
	CategoryDependency Category = "dependency_error"
	CategoryFile       Category = "file_error"
	CategoryProcessing Category = "processing_error"
	CategorySystem     Category = "system_error"
	CategoryValidation Category = "validation_error"
	CategoryTimeout    Category = "timeout_error"
	CategoryResource   Category = "resource_error"
)

// Severity ranks how serious a classified failure is.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ClassifiedError is a raw failure mapped onto the taxonomy. It is
// immutable after creation.
type ClassifiedError struct {
	Category  Category  `json:"category"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Item      string    `json:"item,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	cause error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s/%s: %s", e.Category, e.Severity, e.Message)
}

// Unwrap exposes the original failure for errors.Is/As.
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// rule is one entry of the ordered classification table. The first rule
// whose predicate matches decides category and severity.
type rule struct {
	name     string
	match    func(err error, lower string) bool
	category Category
	severity Severity
	prefix   string
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

var classificationRules = []rule{
	{
		name: "file_not_found",
		match: func(err error, lower string) bool {
			return errors.Is(err, fs.ErrNotExist) ||
				containsAny(lower, "no such file", "file not found", "does not exist")
		},
		category: CategoryFile,
		severity: SeverityError,
		prefix:   "file not found",
	},
	{
		name: "permission_denied",
		match: func(err error, lower string) bool {
			return errors.Is(err, fs.ErrPermission) ||
				containsAny(lower, "permission denied", "access denied", "cannot write")
		},
		category: CategoryFile,
		severity: SeverityError,
		prefix:   "permission denied",
	},
	{
		name: "timeout",
		match: func(err error, lower string) bool {
			return errors.Is(err, context.DeadlineExceeded) ||
				containsAny(lower, "timeout", "timed out", "time limit")
		},
		category: CategoryTimeout,
		severity: SeverityWarning,
		prefix:   "operation timed out",
	},
	{
		name: "missing_dependency",
		match: func(err error, lower string) bool {
			return errors.Is(err, exec.ErrNotFound) ||
				containsAny(lower, "pandoc", "xelatex", "command not found", "not recognized",
					"executable file not found")
		},
		category: CategoryDependency,
		severity: SeverityFatal,
		prefix:   "missing dependency",
	},
	{
		name: "compiler_failure",
		match: func(err error, lower string) bool {
			return containsAny(lower, "latex error", "compilation failed", "undefined control")
		},
		category: CategoryProcessing,
		severity: SeverityError,
		prefix:   "document processing failed",
	},
	{
		name: "resource_exhausted",
		match: func(err error, lower string) bool {
			return containsAny(lower, "memory", "disk space", "no space left", "resource")
		},
		category: CategoryResource,
		severity: SeverityError,
		prefix:   "resource constraint",
	},
}

// Classify maps a raw failure onto the taxonomy by evaluating the
// ordered rule table; the first match wins. Unmatched failures fall
// back to a system error. Classification of the same input always
// yields the same category and severity.
func Classify(err error, item string) *ClassifiedError {
	msg := err.Error()
	lower := strings.ToLower(msg)

	for _, r := range classificationRules {
		if r.match(err, lower) {
			return &ClassifiedError{
				Category:  r.category,
				Severity:  r.severity,
				Message:   fmt.Sprintf("%s: %s", r.prefix, msg),
				Item:      item,
				Timestamp: time.Now(),
				cause:     err,
			}
		}
	}

	return &ClassifiedError{
		Category:  CategorySystem,
		Severity:  SeverityError,
		Message:   fmt.Sprintf("unexpected error: %s", msg),
		Item:      item,
		Timestamp: time.Now(),
		cause:     err,
	}
}
