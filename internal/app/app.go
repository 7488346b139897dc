package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"NewsRelay/internal/config"
	"NewsRelay/internal/infrastructure/discord"
	"NewsRelay/internal/infrastructure/feed"
	"NewsRelay/internal/infrastructure/ocr"
	"NewsRelay/internal/infrastructure/parser"
	"NewsRelay/internal/infrastructure/scheduler"
	"NewsRelay/internal/infrastructure/storage"
	"NewsRelay/internal/logging"
	"NewsRelay/internal/match"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/usecase"
)

// Application wires configuration to adapters and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	closer    func() error
}

// New validates configuration and builds a runnable application instance.
// Validation happens before any state is opened or mutated.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	scanner := parser.NewNewsScanner(
		httpClient,
		cfg.News.ListURL,
		cfg.News.BaseURL,
		cfg.News.CandidateLimit,
		baseLogger.With("component", "scanner.news"),
	)

	community := feed.NewCommunitySource(
		httpClient,
		cfg.Community.FeedURL,
		cfg.Community.ItemLimit,
		baseLogger.With("component", "source.community"),
	)

	engine := match.NewEngine(cfg.Match.Threshold, scanner, baseLogger.With("component", "matcher"))

	var fallback ports.Matcher
	if cfg.OCR.Endpoint != "" {
		fallback = ocr.NewFallbackMatcher(cfg.OCR.Endpoint, cfg.OCR.APIKey, engine, baseLogger.With("component", "matcher.ocr"))
	}

	store, closer, err := buildStateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sink := discord.NewSink(cfg.Discord.BotToken, cfg.Discord.ChannelID, cfg.Discord.RequestsPerSecond)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Officials: scanner,
		Community: community,
		Resolver:  scanner,
		Matcher:   engine,
		Fallback:  fallback,
		Sink:      sink,
		Store:     store,
		Logger:    baseLogger.With("component", "pipeline"),
	}, usecase.Options{
		MaxOfficialPerRun:  cfg.Pipeline.MaxOfficialPerRun,
		MaxCommunityPerRun: cfg.Pipeline.MaxCommunityPerRun,
		RetryUnmatched:     cfg.Match.RetryUnmatched,
		DisableBootstrap:   cfg.Pipeline.DisableBootstrap,
		MaxSinkAttempts:    cfg.Discord.MaxAttempts,
		DefaultBackoff:     time.Duration(cfg.Discord.BackoffSeconds) * time.Second,
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())

	return &Application{
		cfg:       cfg,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(driver, pipeline),
		closer:    closer,
	}, nil
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context) error {
	return a.pipeline.Run(ctx)
}

// RunScheduled starts the cron driver and blocks until the context ends.
func (a *Application) RunScheduled(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases held resources (database pool, if any).
func (a *Application) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

func buildStateStore(ctx context.Context, cfg config.Config) (ports.StateStore, func() error, error) {
	if cfg.Database.DSN != "" {
		store, err := storage.OpenPostgresStore(ctx, cfg.Database.DSN, cfg.State.RelayName, cfg.State.Capacity)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres state store: %w", err)
		}
		return store, store.Close, nil
	}
	return storage.NewFileStore(cfg.State.Path, cfg.State.Capacity), nil, nil
}
