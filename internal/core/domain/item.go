package domain

import "time"

// ConversionStatus is the outcome of one external conversion call.
type ConversionStatus string

const (
	ConversionSuccess ConversionStatus = "success"
	ConversionFailed  ConversionStatus = "failed"
	ConversionSkipped ConversionStatus = "skipped"
)

// ConversionResult describes the outcome of converting a single document.
type ConversionResult struct {
	InputPath   string           `json:"input_path"`
	OutputPath  string           `json:"output_path"`
	Status      ConversionStatus `json:"status"`
	Message     string           `json:"message,omitempty"`
	ErrorDetail string           `json:"error_detail,omitempty"`
	Attempts    int              `json:"attempts"`
	Duration    time.Duration    `json:"duration"`
	Size        int64            `json:"size,omitempty"`
}
