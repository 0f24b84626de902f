package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/huyngo/docpress/internal/recovery"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Pipeline.InputDir == "" {
		cfg.Pipeline.InputDir = "docs"
	}
	if cfg.Pipeline.OutputDir == "" {
		cfg.Pipeline.OutputDir = "output"
	}
	if cfg.Pipeline.Template == "" {
		cfg.Pipeline.Template = "default"
	}
	if cfg.Pipeline.PandocPath == "" {
		cfg.Pipeline.PandocPath = "pandoc"
	}
	if cfg.Pipeline.PDFEngine == "" {
		cfg.Pipeline.PDFEngine = "xelatex"
	}
	if cfg.Pipeline.ItemTimeout == 0 {
		cfg.Pipeline.ItemTimeout = 2 * time.Minute
	}
	if cfg.Pipeline.MaxFileSize == 0 {
		cfg.Pipeline.MaxFileSize = 10 << 20
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 60 * time.Second
	}
	if cfg.Retry.BackoffMultiplier == 0 {
		cfg.Retry.BackoffMultiplier = 2.0
	}
	if cfg.Retry.Policy == "" {
		cfg.Retry.Policy = recovery.PolicyExponential
	}

	if cfg.Checkpoint.Dir == "" {
		cfg.Checkpoint.Dir = ".docpress/checkpoints"
	}
	if cfg.Checkpoint.AutoSaveInterval == 0 {
		cfg.Checkpoint.AutoSaveInterval = 30 * time.Second
	}
	if cfg.Checkpoint.MaxPerBatch == 0 {
		cfg.Checkpoint.MaxPerBatch = 10
	}
	if cfg.Checkpoint.MaxAge == 0 {
		cfg.Checkpoint.MaxAge = 24 * time.Hour
	}
}
