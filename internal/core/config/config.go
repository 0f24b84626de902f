package config

import (
	"time"

	"github.com/huyngo/docpress/internal/checkpoint"
	"github.com/huyngo/docpress/internal/infra/history"
	"github.com/huyngo/docpress/internal/recovery"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig         `yaml:"server"`
	Logging    LoggingConfig        `yaml:"logging"`
	Pipeline   PipelineConfig       `yaml:"pipeline"`
	Retry      recovery.RetryConfig `yaml:"retry"`
	Checkpoint CheckpointConfig     `yaml:"checkpoint"`
	Database   history.Config       `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// PipelineConfig holds conversion pipeline settings.
type PipelineConfig struct {
	InputDir    string        `yaml:"input_dir"`
	OutputDir   string        `yaml:"output_dir"`
	Template    string        `yaml:"template"`
	TemplateDir string        `yaml:"template_dir"`
	PandocPath  string        `yaml:"pandoc_path"`
	PDFEngine   string        `yaml:"pdf_engine"`
	ItemTimeout time.Duration `yaml:"item_timeout"`
	MaxFileSize int64         `yaml:"max_file_size"`
}

// CheckpointConfig holds checkpoint persistence settings.
type CheckpointConfig struct {
	Enabled          bool                   `yaml:"enabled"`
	Dir              string                 `yaml:"dir"`
	AutoSaveInterval time.Duration          `yaml:"auto_save_interval"`
	MaxPerBatch      int                    `yaml:"max_per_batch"`
	MaxAge           time.Duration          `yaml:"max_age"`
	Redis            checkpoint.RedisConfig `yaml:"redis"`
}
