// Package pandoc invokes the external pandoc document compiler. The
// conversion itself lives entirely in that tool; this package only
// shapes the invocation and reports its outcome.
package pandoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Config tunes the pandoc invocation.
type Config struct {
	// Binary is the pandoc executable name or path.
	Binary string
	// Engine is the PDF engine passed via --pdf-engine.
	Engine string
	// Timeout bounds a single conversion attempt. Zero means no limit.
	Timeout time.Duration
}

// Converter runs pandoc as a subprocess.
type Converter struct {
	cfg Config
	log *slog.Logger
}

// NewConverter creates a converter with defaults applied.
func NewConverter(cfg Config, log *slog.Logger) *Converter {
	if cfg.Binary == "" {
		cfg.Binary = "pandoc"
	}
	if cfg.Engine == "" {
		cfg.Engine = "xelatex"
	}
	return &Converter{cfg: cfg, log: log}
}

// BuildArgs assembles the pandoc command line for one conversion.
func (c *Converter) BuildArgs(inputPath, outputPath string, extraArgs []string) []string {
	args := []string{inputPath, "-o", outputPath, "--pdf-engine=" + c.cfg.Engine}
	return append(args, extraArgs...)
}

// Convert runs one conversion. Non-Markdown inputs are skipped; a
// missing input fails without invoking pandoc. The returned error is
// non-nil for any failure so callers can retry and classify it.
func (c *Converter) Convert(ctx context.Context, inputPath, outputPath string, extraArgs []string) error {
	if !strings.EqualFold(filepath.Ext(inputPath), ".md") {
		return nil
	}
	if _, err := os.Stat(inputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("input file does not exist: %s: %w", inputPath, err)
		}
		return fmt.Errorf("cannot access input file %s: %w", inputPath, err)
	}

	runCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	args := c.BuildArgs(inputPath, outputPath, extraArgs)
	c.log.Debug("Running pandoc", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(runCtx, c.cfg.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	detail := tail(stderr.String(), 2048)
	if runErr := runCtx.Err(); errors.Is(runErr, context.DeadlineExceeded) {
		return fmt.Errorf("pandoc timed out after %s: %w", c.cfg.Timeout, runErr)
	}
	if detail != "" {
		return fmt.Errorf("pandoc failed: %s: %w", detail, err)
	}
	return fmt.Errorf("pandoc failed: %w", err)
}

// tail keeps the last n bytes of external-tool output so error messages
// stay bounded.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
