package pipeline

import (
	"fmt"
	"strings"

	"github.com/huyngo/docpress/internal/progress"
)

// maxReportErrors bounds how many failures the text report lists.
const maxReportErrors = 5

// ReportStatus renders a human-readable summary of one batch run.
func ReportStatus(res BatchResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Batch %s: %s\n", res.BatchID, strings.ToUpper(string(res.Status)))
	fmt.Fprintf(&b, "  total:      %d\n", res.TotalFiles)
	fmt.Fprintf(&b, "  successful: %d\n", res.Successful)
	fmt.Fprintf(&b, "  failed:     %d\n", res.Failed)
	fmt.Fprintf(&b, "  skipped:    %d\n", res.Skipped)
	fmt.Fprintf(&b, "  duration:   %s\n", progress.FormatDuration(res.Duration))

	if res.TotalFiles > 0 {
		rate := float64(res.Successful) / float64(res.TotalFiles) * 100
		fmt.Fprintf(&b, "  success rate: %.1f%%\n", rate)
	}

	if len(res.Errors) > 0 {
		fmt.Fprintf(&b, "  errors (%d):\n", len(res.Errors))
		for i, ce := range res.Errors {
			if i == maxReportErrors {
				fmt.Fprintf(&b, "    ... and %d more\n", len(res.Errors)-maxReportErrors)
				break
			}
			item := ce.Item
			if item == "" {
				item = "<batch>"
			}
			fmt.Fprintf(&b, "    [%s/%s] %s: %s\n", ce.Category, ce.Severity, item, ce.Message)
		}
	}

	return b.String()
}
