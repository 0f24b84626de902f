// Package health probes the dependencies and environment the pipeline
// needs before doing any work.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/huyngo/docpress/internal/infra/pandoc"
)

// Status represents the overall health state.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// CheckResult is the outcome of a full health check.
type CheckResult struct {
	Status          Status                           `json:"status"`
	Summary         string                           `json:"summary"`
	Recommendations []string                         `json:"recommendations,omitempty"`
	Dependencies    map[string]pandoc.DependencyInfo `json:"dependencies"`
}

// DependencyProber reports availability of the external conversion
// tools.
type DependencyProber interface {
	CheckDependencies(ctx context.Context) map[string]pandoc.DependencyInfo
}

// Checker performs preflight health checks.
type Checker struct {
	prober    DependencyProber
	inputDir  string
	outputDir string
	log       *slog.Logger
}

// NewChecker creates a health checker for one pipeline run.
func NewChecker(prober DependencyProber, inputDir, outputDir string, log *slog.Logger) *Checker {
	return &Checker{prober: prober, inputDir: inputDir, outputDir: outputDir, log: log}
}

// Check probes dependencies and the environment. Missing conversion
// tools or a missing input directory are critical; a degraded output
// directory is a warning.
func (c *Checker) Check(ctx context.Context) CheckResult {
	deps := c.prober.CheckDependencies(ctx)

	var problems []string
	var recs []string
	status := StatusHealthy

	for key, info := range deps {
		if !info.Available {
			status = StatusCritical
			problems = append(problems, fmt.Sprintf("%s (%s) not found", key, info.Name))
			recs = append(recs, fmt.Sprintf("install %s and make sure it is on PATH", info.Name))
		}
	}

	if info, err := os.Stat(c.inputDir); err != nil || !info.IsDir() {
		status = StatusCritical
		problems = append(problems, fmt.Sprintf("input directory %s is not accessible", c.inputDir))
		recs = append(recs, "check that the input directory exists and is readable")
	}

	if err := c.checkWritable(c.outputDir); err != nil {
		if status != StatusCritical {
			status = StatusWarning
		}
		problems = append(problems, fmt.Sprintf("output directory %s is not writable: %v", c.outputDir, err))
		recs = append(recs, "check output directory permissions and free disk space")
	}

	summary := "all checks passed"
	if len(problems) > 0 {
		summary = strings.Join(problems, "; ")
	}

	c.log.Info("Health check completed", "status", string(status), "summary", summary)
	return CheckResult{
		Status:          status,
		Summary:         summary,
		Recommendations: recs,
		Dependencies:    deps,
	}
}

// checkWritable creates the directory if needed and verifies a file can
// actually be written there. This doubles as a coarse disk-space probe.
func (c *Checker) checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".docpress_probe*")
	if err != nil {
		return err
	}
	name := f.Name()
	_, werr := f.WriteString("probe")
	cerr := f.Close()
	os.Remove(filepath.Clean(name))
	if werr != nil {
		return werr
	}
	return cerr
}
