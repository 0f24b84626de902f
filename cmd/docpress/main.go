package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/huyngo/docpress/internal/control"
	"github.com/huyngo/docpress/internal/core/config"
	"github.com/huyngo/docpress/internal/pipeline"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	inputDir := flag.String("input", "", "Input directory (overrides config)")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	templateName := flag.String("template", "", "Conversion template (overrides config)")
	resumeBatch := flag.String("resume", "", "Resume the given batch from its latest checkpoint")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	log := newLogger(slog.LevelInfo)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if *isDebug || cfg.Logging.Level == "debug" {
		log = newLogger(slog.LevelDebug)
	}
	slog.SetDefault(log)

	// CLI overrides
	if *inputDir != "" {
		cfg.Pipeline.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.Pipeline.OutputDir = *outputDir
	}
	if *templateName != "" {
		cfg.Pipeline.Template = *templateName
	}

	runner, err := control.NewRunner(cfg, control.Options{ResumeBatchID: *resumeBatch}, log)
	if err != nil {
		log.Error("Failed to initialize runner", "error", err)
		os.Exit(1)
	}

	// Setup context with cancellation on OS signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("Received signal, finishing current item...", "signal", sig)
		cancel()
	}()

	res := runner.Run(ctx)
	fmt.Print(pipeline.ReportStatus(res))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := runner.Stop(shutdownCtx); err != nil {
		log.Warn("Error during shutdown", "error", err)
	}

	if res.Status != pipeline.StatusCompleted {
		os.Exit(1)
	}
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}

// loadConfig falls back to built-in defaults when the default config
// file is absent; an explicitly named file must exist.
func loadConfig(path string) (*config.AppConfig, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == "config.yaml" && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}
