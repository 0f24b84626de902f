// Package control wires the conversion pipeline together and manages
// its lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/huyngo/docpress/internal/checkpoint"
	"github.com/huyngo/docpress/internal/core/config"
	"github.com/huyngo/docpress/internal/discovery"
	"github.com/huyngo/docpress/internal/infra/history"
	"github.com/huyngo/docpress/internal/infra/pandoc"
	"github.com/huyngo/docpress/internal/monitoring/health"
	"github.com/huyngo/docpress/internal/pipeline"
	"github.com/huyngo/docpress/internal/recovery"
	"github.com/huyngo/docpress/internal/template"
	"github.com/huyngo/docpress/internal/validate"
)

// Runner assembles the pipeline and manages its lifecycle.
type Runner struct {
	cfg          *config.AppConfig
	orchestrator *pipeline.Orchestrator
	healthServer *health.Server
	ckptMgr      *checkpoint.Manager
	db           *history.DB
	historyRepo  *history.Repo
	log          *slog.Logger
}

// Options carries per-invocation overrides on top of the config file.
type Options struct {
	ResumeBatchID string
}

// NewRunner initializes all pipeline components from configuration.
func NewRunner(cfg *config.AppConfig, opts Options, log *slog.Logger) (*Runner, error) {
	// 1. Conversion executor.
	conv := pandoc.NewConverter(pandoc.Config{
		Binary:  cfg.Pipeline.PandocPath,
		Engine:  cfg.Pipeline.PDFEngine,
		Timeout: cfg.Pipeline.ItemTimeout,
	}, log)
	templates := template.NewLoader(cfg.Pipeline.TemplateDir, log)
	executor := pandoc.NewExecutor(conv, templates, cfg.Pipeline.Template, cfg.Pipeline.OutputDir, log)

	// 2. Checkpoint persistence. Redis when configured, local files
	// otherwise.
	var ckptMgr *checkpoint.Manager
	if cfg.Checkpoint.Enabled {
		var store checkpoint.Store
		if cfg.Checkpoint.Redis.URL != "" {
			rs, err := checkpoint.NewRedisStore(cfg.Checkpoint.Redis, log)
			if err != nil {
				return nil, fmt.Errorf("failed to init redis checkpoint store: %w", err)
			}
			store = rs
			log.Info("Using Redis checkpoint storage")
		} else {
			fs, err := checkpoint.NewFileStore(cfg.Checkpoint.Dir, log)
			if err != nil {
				return nil, fmt.Errorf("failed to init file checkpoint store: %w", err)
			}
			store = fs
			log.Info("Using file checkpoint storage", "dir", cfg.Checkpoint.Dir)
		}
		ckptMgr = checkpoint.NewManager(store, checkpoint.ManagerConfig{
			AutoSaveInterval: cfg.Checkpoint.AutoSaveInterval,
			MaxPerBatch:      cfg.Checkpoint.MaxPerBatch,
			MaxAge:           cfg.Checkpoint.MaxAge,
		}, log)

		if _, err := ckptMgr.Sweep(context.Background()); err != nil {
			log.Warn("Startup checkpoint sweep failed", "error", err)
		}
	}

	// 3. Batch history (optional).
	var db *history.DB
	var historyRepo *history.Repo
	if cfg.Database.URL != "" {
		var err error
		db, err = history.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		historyRepo = history.NewRepo(db)
		log.Info("Batch history enabled")
	}

	// 4. Health monitoring.
	checker := health.NewChecker(conv, cfg.Pipeline.InputDir, cfg.Pipeline.OutputDir, log)
	healthServer := health.NewServer(checker, cfg.Server.Port)

	// 5. Orchestrator.
	engine := recovery.NewEngine(cfg.Retry, recovery.ContextSleeper{}, log)
	deps := pipeline.Deps{
		Health:     checker,
		Discoverer: discovery.NewDiscoverer(log),
		Validator:  validate.NewValidator(cfg.Pipeline.MaxFileSize),
		Executor:   executor,
		Retry:      engine,
		Logger:     log,
	}
	if ckptMgr != nil {
		deps.Checkpointer = ckptMgr
	}

	orch := pipeline.New(pipeline.Config{
		InputDir:      cfg.Pipeline.InputDir,
		OutputDir:     cfg.Pipeline.OutputDir,
		Retry:         cfg.Retry,
		ResumeBatchID: opts.ResumeBatchID,
	}, deps)

	return &Runner{
		cfg:          cfg,
		orchestrator: orch,
		healthServer: healthServer,
		ckptMgr:      ckptMgr,
		db:           db,
		historyRepo:  historyRepo,
		log:          log,
	}, nil
}

// Run starts the health server, executes the batch, and records the
// outcome.
func (r *Runner) Run(ctx context.Context) pipeline.BatchResult {
	go func() {
		if err := r.healthServer.Start(); err != nil {
			r.log.Debug("Health server stopped", "error", err)
		}
	}()

	started := time.Now()
	res := r.orchestrator.Run(ctx)

	if r.ckptMgr != nil && res.BatchID != "" {
		r.ckptMgr.Forget(res.BatchID)
	}

	if r.historyRepo != nil && res.BatchID != "" {
		rec := history.BatchRecord{
			BatchID:    res.BatchID,
			Status:     string(res.Status),
			InputDir:   r.cfg.Pipeline.InputDir,
			OutputDir:  r.cfg.Pipeline.OutputDir,
			TotalFiles: res.TotalFiles,
			Successful: res.Successful,
			Failed:     res.Failed,
			Skipped:    res.Skipped,
			DurationMS: res.Duration.Milliseconds(),
			StartedAt:  started,
			FinishedAt: time.Now(),
		}
		if err := r.historyRepo.Record(context.Background(), rec); err != nil {
			r.log.Warn("Failed to record batch history", "batch_id", res.BatchID, "error", err)
		}
	}

	return res
}

// Stop shuts down the runner's background components.
func (r *Runner) Stop(ctx context.Context) error {
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.log.Warn("Failed to close database", "error", err)
		}
	}
	return r.healthServer.Stop(ctx)
}
