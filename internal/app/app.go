package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Poligraph/internal/config"
	"Poligraph/internal/infrastructure/judilibre"
	"Poligraph/internal/infrastructure/llm"
	"Poligraph/internal/infrastructure/parser"
	"Poligraph/internal/infrastructure/scheduler"
	"Poligraph/internal/infrastructure/storage"
	"Poligraph/internal/infrastructure/telegram"
	"Poligraph/internal/infrastructure/wikidata"
	"Poligraph/internal/logging"
	"Poligraph/internal/matching"
	"Poligraph/internal/ports"
	"Poligraph/internal/scanner"
	"Poligraph/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	repo       *storage.Repository
	discovery  *usecase.Discovery
	reconciler *usecase.Reconciler
	scheduler  *usecase.Scheduler
}

// New opens the database and builds every use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	repo, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return newWithRepository(cfg, repo, baseLogger), nil
}

func newWithRepository(cfg config.Config, repo *storage.Repository, baseLogger *slog.Logger) *Application {
	matcher := matching.NewMatcher(repo, baseLogger.With("component", "matcher"))

	registry := scanner.NewRegistry(
		parser.NewWikidataScanner(wikidata.NewClient(cfg.Wikidata)),
		parser.NewJudilibreScanner(judilibre.NewClient(cfg.Judilibre)),
	)
	if cfg.LLM.APIKey != "" {
		registry.Register(parser.NewWikipediaScanner(nil, cfg.Wikipedia, llm.NewExtractor(cfg.LLM), cfg.LLM.MinConfidence))
	} else {
		baseLogger.Warn("llm api key missing, wikipedia phase disabled")
	}

	source := parser.NewPhaseSource(registry, cfg.Discovery.Phases, baseLogger.With("component", "source"))

	discovery := usecase.NewDiscovery(usecase.DiscoveryDeps{
		Politicians: repo,
		Affairs:     repo,
		Matcher:     matcher,
		Source:      source,
		Logger:      baseLogger.With("component", "discovery"),
	})

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
	}

	reconciler := usecase.NewReconciler(usecase.ReconcilerDeps{
		Store:    repo,
		Matcher:  matcher,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "reconciler"),
	})

	sched := usecase.NewScheduler(
		scheduler.NewIntervalScheduler(cfg.Scheduler.Every(), cfg.Scheduler.Location()),
		reconciler,
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		repo:       repo,
		discovery:  discovery,
		reconciler: reconciler,
		scheduler:  sched,
	}
}

// Close releases the database.
func (a *Application) Close() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}

// Migrate creates the schema if needed.
func (a *Application) Migrate(ctx context.Context) error {
	return a.repo.Migrate(ctx)
}

// Discovery exposes the ingestion use case.
func (a *Application) Discovery() *usecase.Discovery {
	return a.discovery
}

// Reconciler exposes the reconciliation use case.
func (a *Application) Reconciler() *usecase.Reconciler {
	return a.reconciler
}

// VerifyAffair marks an affair as human-verified, removing it from reconciliation.
func (a *Application) VerifyAffair(ctx context.Context, id, verifiedBy string) error {
	return a.repo.VerifyAffair(ctx, id, verifiedBy)
}

// Watch runs the periodic sweep until ctx is cancelled.
func (a *Application) Watch(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching", "interval", a.cfg.Scheduler.Every().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}
