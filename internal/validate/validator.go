// Package validate performs pre-flight checks on individual work items.
package validate

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// DefaultMaxFileSize caps input documents at 10 MiB unless configured.
const DefaultMaxFileSize = 10 << 20

// Result reports whether an item may enter the batch.
type Result struct {
	IsValid bool
	Errors  []string
}

// Validator checks items before they are handed to the pipeline.
type Validator struct {
	MaxFileSize int64
}

// NewValidator creates a validator with the given size cap (0 uses the
// default).
func NewValidator(maxFileSize int64) *Validator {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Validator{MaxFileSize: maxFileSize}
}

// Validate runs all checks for one item.
func (v *Validator) Validate(path string) Result {
	var errs []string

	info, err := os.Stat(path)
	if err != nil {
		errs = append(errs, fmt.Sprintf("cannot stat file: %v", err))
		return Result{IsValid: false, Errors: errs}
	}

	if !info.Mode().IsRegular() {
		errs = append(errs, "not a regular file")
	}
	if info.Size() == 0 {
		errs = append(errs, "file is empty")
	}
	if info.Size() > v.MaxFileSize {
		errs = append(errs, fmt.Sprintf("file exceeds size limit (%d > %d bytes)", info.Size(), v.MaxFileSize))
	}
	if len(errs) > 0 {
		return Result{IsValid: false, Errors: errs}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		errs = append(errs, fmt.Sprintf("cannot read file: %v", err))
		return Result{IsValid: false, Errors: errs}
	}
	if !utf8.Valid(data) {
		errs = append(errs, "file is not valid UTF-8")
	}

	return Result{IsValid: len(errs) == 0, Errors: errs}
}
