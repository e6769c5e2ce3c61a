package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"LeetTracker/internal/config"
	"LeetTracker/internal/infrastructure/leetcode"
	"LeetTracker/internal/infrastructure/scheduler"
	"LeetTracker/internal/infrastructure/storage"
	"LeetTracker/internal/infrastructure/telegram"
	"LeetTracker/internal/logging"
	"LeetTracker/internal/ports"
	"LeetTracker/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	repo      *storage.SQLiteRepository
	collector *usecase.Collector
	reporter  *usecase.Reporter
	sweeper   *usecase.Sweeper
	scheduler *usecase.Scheduler
	commands  *usecase.Commands
	poller    *telegram.Poller
}

// New opens the store and builds every component. Close releases the store.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	repo, err := storage.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	clock := clockwork.NewRealClock()
	source := leetcode.NewClient(cfg.LeetCode, baseLogger.With("component", "leetcode"))
	notifier := telegram.NewNotifier(cfg.Telegram.APIBase, cfg.Telegram.BotToken)

	collector := usecase.NewCollector(usecase.CollectorDeps{
		Roster:          repo,
		Source:          source,
		Metadata:        usecase.NewMetadataCache(repo, source, baseLogger.With("component", "metadata")),
		Ledger:          repo,
		Clock:           clock,
		IdentityTimeout: cfg.Collector.IdentityTimeout,
		Logger:          baseLogger.With("component", "collector"),
	})
	reporter := usecase.NewReporter(usecase.ReporterDeps{
		Roster:         repo,
		Ledger:         repo,
		Notifier:       notifier,
		Clock:          clock,
		ProblemBaseURL: cfg.LeetCode.ProblemBaseURL,
		Logger:         baseLogger.With("component", "reporter"),
	})
	sweeper := usecase.NewSweeper(repo, clock, baseLogger.With("component", "sweeper"))

	driver := scheduler.New(clock, baseLogger.With("component", "scheduler"))
	jobs := usecase.NewScheduler(usecase.SchedulerDeps{
		Driver:    driver,
		Collector: collector,
		Reporter:  reporter,
		Sweeper:   sweeper,
		Schedule: usecase.Schedule{
			CollectInterval: cfg.Scheduler.CollectInterval,
			CollectDelay:    cfg.Scheduler.CollectDelay,
			ReportOffset:    cfg.Scheduler.ReportOffset(),
			SweepOffset:     cfg.Scheduler.SweepOffset(),
			HorizonDays:     cfg.Retention.HorizonDays,
		},
		Logger: baseLogger.With("component", "jobs"),
	})

	commands := usecase.NewCommands(repo, reporter, driver, baseLogger.With("component", "commands"))

	var poller *telegram.Poller
	if cfg.Telegram.BotToken != "" {
		poller = telegram.NewPoller(notifier, commands, cfg.Telegram.PollTimeout, baseLogger.With("component", "telegram"))
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		repo:      repo,
		collector: collector,
		reporter:  reporter,
		sweeper:   sweeper,
		scheduler: jobs,
		commands:  commands,
		poller:    poller,
	}, nil
}

// Run starts the scheduled jobs and the command poller and blocks until ctx ends.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("leettracker started",
		"database", a.cfg.Database.Path,
		"report_at", a.cfg.Scheduler.ReportAt,
		"sweep_at", a.cfg.Scheduler.SweepAt,
		"collect_every", a.cfg.Scheduler.CollectInterval.String())

	g, gctx := errgroup.WithContext(ctx)
	if a.poller != nil {
		g.Go(func() error {
			return a.poller.Run(gctx)
		})
	} else {
		a.logger.Warn("telegram bot token not configured, commands and reports are disabled")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	runErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Collector.IdentityTimeout)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler did not stop cleanly", "error", err)
	}

	a.logger.Info("leettracker stopped")
	return runErr
}

// Close releases the store.
func (a *Application) Close() error {
	return a.repo.Close()
}

// Collector exposes the collection use case for one-shot runs.
func (a *Application) Collector() *usecase.Collector { return a.collector }

// Reporter exposes the report use case for one-shot runs.
func (a *Application) Reporter() *usecase.Reporter { return a.reporter }

// Sweeper exposes the retention use case for one-shot runs.
func (a *Application) Sweeper() *usecase.Sweeper { return a.sweeper }

// Commands exposes roster and destination management.
func (a *Application) Commands() *usecase.Commands { return a.commands }

// Roster is the identity store.
func (a *Application) Roster() ports.RosterStore { return a.repo }
