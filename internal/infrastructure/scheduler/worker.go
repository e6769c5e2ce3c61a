package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

const queueSize = 16

type triggerKind string

const (
	triggerInterval triggerKind = "interval"
	triggerDaily    triggerKind = "daily"
	triggerManual   triggerKind = "manual"
)

// job tracks one named job. inflight counts timer triggers queued or running;
// a timer trigger that finds it non-zero is dropped.
type job struct {
	name     string
	run      ports.JobFunc
	inflight atomic.Int32
}

type trigger struct {
	job  *job
	kind triggerKind
	// next returns how long to wait from now until the trigger fires again.
	next func(now time.Time, first bool) time.Duration
}

type request struct {
	job  *job
	kind triggerKind
	run  ports.JobFunc
	done chan error
}

// Scheduler runs every job on one worker goroutine, so jobs never overlap and
// the shared store sees one writer at a time. Manual work waits its turn.
type Scheduler struct {
	clock  clockwork.Clock
	logger *slog.Logger

	mu       sync.Mutex
	jobs     map[string]*job
	triggers []trigger
	queue    chan request
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

var _ ports.Scheduler = (*Scheduler)(nil)

// New builds an idle scheduler. A nil clock means the real clock.
func New(clock clockwork.Clock, log *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		clock:  clock,
		logger: log,
		jobs:   map[string]*job{},
		queue:  make(chan request, queueSize),
	}
}

// Every fires the job firstDelay after Start, then every interval.
func (s *Scheduler) Every(name string, interval, firstDelay time.Duration, run ports.JobFunc) {
	j := s.register(name, run)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers = append(s.triggers, trigger{
		job:  j,
		kind: triggerInterval,
		next: func(_ time.Time, first bool) time.Duration {
			if first {
				return firstDelay
			}
			return interval
		},
	})
}

// DailyAt fires the job once per UTC day at offset past midnight.
func (s *Scheduler) DailyAt(name string, offset time.Duration, run ports.JobFunc) {
	j := s.register(name, run)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers = append(s.triggers, trigger{
		job:  j,
		kind: triggerDaily,
		next: func(now time.Time, _ bool) time.Duration {
			return NextDaily(now, offset).Sub(now)
		},
	})
}

func (s *Scheduler) register(name string, run ports.JobFunc) *job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[name]; ok {
		if run != nil {
			j.run = run
		}
		return j
	}
	j := &job{name: name, run: run}
	s.jobs[name] = j
	return j
}

// NextDaily returns the first instant strictly after now at offset past UTC midnight.
func NextDaily(now time.Time, offset time.Duration) time.Time {
	candidate := domain.DayOf(now).Add(offset)
	if !candidate.After(now.UTC()) {
		candidate = domain.DayOf(now).AddDate(0, 0, 1).Add(offset)
	}
	return candidate
}

// Start launches the worker and one timer loop per trigger.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.work(runCtx)

	for _, t := range s.triggers {
		s.wg.Add(1)
		go s.loop(runCtx, t)
		s.logger.Info("job scheduled", "job", t.job.name, "trigger", t.kind,
			"first_run", s.clock.Now().Add(t.next(s.clock.Now(), true)).UTC().Format(time.RFC3339))
	}
	return nil
}

// Stop cancels timers and waits for the running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// Do runs fn on the worker under the name of a job and waits for its result.
// An empty fn runs the job's registered body.
func (s *Scheduler) Do(ctx context.Context, name string, fn ports.JobFunc) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	started := s.cancel != nil
	s.mu.Unlock()
	if !ok {
		j = s.register(name, nil)
	}
	if fn == nil {
		fn = j.run
	}
	if fn == nil {
		return fmt.Errorf("job %s has no body", name)
	}
	if !started {
		return fmt.Errorf("job %s: scheduler is not running", name)
	}

	req := request{job: j, kind: triggerManual, run: fn, done: make(chan error, 1)}
	select {
	case s.queue <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow invokes a registered job manually.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	return s.Do(ctx, name, nil)
}

func (s *Scheduler) loop(ctx context.Context, t trigger) {
	defer s.wg.Done()

	first := true
	for {
		wait := t.next(s.clock.Now(), first)
		first = false

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(wait):
			s.fire(ctx, t)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, t trigger) {
	if !t.job.inflight.CompareAndSwap(0, 1) {
		s.logger.Warn("job still pending or running, skipping trigger", "job", t.job.name, "trigger", t.kind)
		return
	}

	select {
	case s.queue <- request{job: t.job, kind: t.kind, run: t.job.run}:
	case <-ctx.Done():
		t.job.inflight.Store(0)
	}
}

func (s *Scheduler) work(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.queue:
			// A started job runs to completion even when Stop cancels the timers.
			err := s.execute(context.WithoutCancel(ctx), req)
			if req.kind != triggerManual {
				req.job.inflight.Store(0)
			}
			if req.done != nil {
				req.done <- err
			}
		}
	}
}

// execute runs one job body; a panic becomes an error so the worker survives.
func (s *Scheduler) execute(ctx context.Context, req request) (err error) {
	log := s.logger.With("job", req.job.name, "trigger", req.kind, "run_id", uuid.NewString())
	started := s.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", req.job.name, r)
			log.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
		}
		elapsed := s.clock.Since(started)
		if err != nil {
			log.Error("job failed", "duration", elapsed, "error", err)
			return
		}
		log.Info("job finished", "duration", elapsed)
	}()

	log.Info("job started")
	if req.run == nil {
		return fmt.Errorf("job %s has no body", req.job.name)
	}
	return req.run(ctx)
}
