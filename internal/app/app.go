package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"CaseCollector/internal/approval"
	"CaseCollector/internal/classifier"
	"CaseCollector/internal/config"
	"CaseCollector/internal/filter"
	"CaseCollector/internal/infrastructure/llm"
	"CaseCollector/internal/infrastructure/runlock"
	"CaseCollector/internal/infrastructure/scheduler"
	"CaseCollector/internal/infrastructure/search"
	"CaseCollector/internal/infrastructure/storage"
	"CaseCollector/internal/infrastructure/telegram"
	"CaseCollector/internal/logging"
	"CaseCollector/internal/ports"
	"CaseCollector/internal/scanner"
	"CaseCollector/internal/usecase"
)

// Options alter how the application is assembled.
type Options struct {
	// DryRun keeps everything in memory and skips notifications.
	DryRun bool
}

type repository interface {
	ports.CaseRepository
	io.Closer
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	repository repository
	pipeline   *usecase.Pipeline
	scheduler  *usecase.Scheduler
}

// New validates the configuration and assembles every collaborator.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cls, err := buildClassifier(cfg, baseLogger)
	if err != nil {
		return nil, err
	}

	contentFilter, err := filter.New(cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("build filter: %w", err)
	}

	registry := scanner.NewRegistry()
	registry.Register(search.NewNaverSearcher(cfg.Search.Naver, nil))
	registry.Register(search.NewHTMLSearcher(cfg.Search.HTML, nil))
	source := search.NewStrategySource(registry, cfg.Search.Providers, baseLogger.With("component", "search"))

	var repo repository
	if opts.DryRun {
		repo = storage.NewMemoryRepository()
	} else {
		sqlRepo, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		baseLogger.Debug("storage opened", "driver", sqlRepo.Driver())
		repo = sqlRepo
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() && !opts.DryRun {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
	}

	lockPath := cfg.RunLock.Path
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Searcher:   source,
		Repository: repo,
		Classifier: cls,
		Filter:     contentFilter,
		Router:     approval.NewRouter(cfg.Approval.Threshold),
		Notifier:   notifier,
		Taxonomy:   cfg.Taxonomy,
		Keywords:   cfg.Keywords,
		Tiers:      toTiers(cfg.Collection),
		Search: usecase.SearchParams{
			Count: cfg.Search.Count,
			Start: cfg.Search.Start,
			Sort:  cfg.Search.Sort,
		},
		Delay:  cfg.Search.Delay,
		Lock:   func() (func() error, error) { return runlock.Acquire(lockPath) },
		Logger: baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		repository: repo,
		pipeline:   pipeline,
		scheduler:  usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler")),
	}, nil
}

func buildClassifier(cfg config.Config, logger *slog.Logger) (ports.Classifier, error) {
	table, err := classifier.LoadRuleTable(cfg.Classifier.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rule table: %w", err)
	}

	var oracle ports.Oracle
	if cfg.Classifier.Strategy == config.StrategyDelegated {
		oracle = llm.NewChatGPTClient(cfg.ChatGPT, logger.With("component", "oracle"))
	}

	cls, err := classifier.New(cfg.Classifier.Strategy, table, oracle)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	return cls, nil
}

func toTiers(cfg []config.CollectionTier) []usecase.CollectionTier {
	tiers := make([]usecase.CollectionTier, 0, len(cfg))
	for _, t := range cfg {
		tiers = append(tiers, usecase.CollectionTier{
			Name:       t.Name,
			SourceType: t.SourceType,
			Terms:      t.Terms,
			Quota:      t.Quota,
		})
	}
	return tiers
}

// Run performs a single collection pass.
func (a *Application) Run(ctx context.Context) (usecase.RunReport, error) {
	return a.pipeline.Run(ctx)
}

// Schedule runs the pipeline on the configured cron expression until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	a.logger.Info("scheduler stopping")
	return a.scheduler.Stop(context.Background())
}

// Close releases the storage connection.
func (a *Application) Close() error {
	if a == nil || a.repository == nil {
		return nil
	}
	return a.repository.Close()
}
