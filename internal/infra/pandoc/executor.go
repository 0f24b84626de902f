package pandoc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huyngo/docpress/internal/core/domain"
	"github.com/huyngo/docpress/internal/template"
)

// Executor is the execution collaborator the orchestrator wraps in the
// retry engine. It resolves the template and metadata for a document
// and runs one pandoc conversion.
type Executor struct {
	conv         *Converter
	templates    *template.Loader
	templateName string
	outputDir    string
	log          *slog.Logger
}

// NewExecutor creates the execution collaborator.
func NewExecutor(conv *Converter, templates *template.Loader, templateName, outputDir string, log *slog.Logger) *Executor {
	if templateName == "" {
		templateName = "default"
	}
	return &Executor{
		conv:         conv,
		templates:    templates,
		templateName: templateName,
		outputDir:    outputDir,
		log:          log,
	}
}

// OutputPath maps an input document to its PDF path.
func (e *Executor) OutputPath(inputPath string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(e.outputDir, stem+".pdf")
}

// Execute converts one document. A non-nil error marks a retryable
// failure; skipped items return a result with no error.
func (e *Executor) Execute(ctx context.Context, item string) (domain.ConversionResult, error) {
	start := time.Now()
	outputPath := e.OutputPath(item)
	res := domain.ConversionResult{InputPath: item, OutputPath: outputPath}

	if !strings.EqualFold(filepath.Ext(item), ".md") {
		res.Status = domain.ConversionSkipped
		res.Message = "not a markdown file"
		return res, nil
	}

	def, err := e.templates.LoadTemplate(e.templateName)
	if err != nil {
		return res, fmt.Errorf("failed to load template: %w", err)
	}
	meta, err := e.templates.LoadMetadata(item)
	if err != nil {
		return res, fmt.Errorf("failed to load metadata: %w", err)
	}
	extraArgs := e.templates.Merge(def, meta)

	if err := e.conv.Convert(ctx, item, outputPath, extraArgs); err != nil {
		return res, err
	}

	res.Status = domain.ConversionSuccess
	res.Message = "converted"
	res.Duration = time.Since(start)
	if info, err := os.Stat(item); err == nil {
		res.Size = info.Size()
	}
	return res, nil
}
