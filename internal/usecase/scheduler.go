package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

// Job names shared by the scheduler and manual triggers.
const (
	JobCollect = "collect"
	JobReport  = "report"
	JobSweep   = "sweep"
)

// Schedule holds the trigger settings of the three recurring jobs.
type Schedule struct {
	CollectInterval time.Duration
	CollectDelay    time.Duration
	ReportOffset    time.Duration
	SweepOffset     time.Duration
	HorizonDays     int
}

// SchedulerDeps wires the job driver with the use cases it runs.
type SchedulerDeps struct {
	Driver    ports.Scheduler
	Collector *Collector
	Reporter  *Reporter
	Sweeper   *Sweeper
	Schedule  Schedule
	Logger    *slog.Logger
}

// Scheduler registers collection, reporting and retention with the driver.
type Scheduler struct {
	driver    ports.Scheduler
	collector *Collector
	reporter  *Reporter
	sweeper   *Sweeper
	schedule  Schedule
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Scheduler{
		driver:    deps.Driver,
		collector: deps.Collector,
		reporter:  deps.Reporter,
		sweeper:   deps.Sweeper,
		schedule:  deps.Schedule,
		logger:    deps.Logger,
	}
}

// Start registers the jobs with the provided driver and starts it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	s.driver.Every(JobCollect, s.schedule.CollectInterval, s.schedule.CollectDelay, s.Collect)
	s.driver.DailyAt(JobReport, s.schedule.ReportOffset, s.ReportYesterday)
	s.driver.DailyAt(JobSweep, s.schedule.SweepOffset, s.Sweep)

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

// Collect is the body of the interval collection job.
func (s *Scheduler) Collect(ctx context.Context) error {
	_, err := s.collector.Collect(ctx)
	return err
}

// ReportYesterday is the body of the daily report job. A missing destination
// is logged and waits for the next cycle.
func (s *Scheduler) ReportYesterday(ctx context.Context) error {
	_, err := s.reporter.Send(ctx, s.reporter.Yesterday())
	if errors.Is(err, domain.ErrUnregistered) {
		s.logger.Warn("no destination registered, report not sent")
		return nil
	}
	return err
}

// Sweep is the body of the daily retention job.
func (s *Scheduler) Sweep(ctx context.Context) error {
	_, err := s.sweeper.Sweep(ctx, s.schedule.HorizonDays)
	return err
}
