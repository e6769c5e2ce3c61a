package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LeetTracker/internal/logging"
)

var epoch = time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)

func startScheduler(t *testing.T, s *Scheduler) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
		cancel()
	})
	return ctx
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job")
	}
}

func TestNextDaily(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		now    time.Time
		offset time.Duration
		want   time.Time
	}{
		{"later today", epoch, 13 * time.Hour, time.Date(2025, time.November, 8, 13, 0, 0, 0, time.UTC)},
		{"already passed", epoch, 9 * time.Hour, time.Date(2025, time.November, 9, 9, 0, 0, 0, time.UTC)},
		{"exactly now", epoch, 12 * time.Hour, time.Date(2025, time.November, 9, 12, 0, 0, 0, time.UTC)},
		{"non-utc input", epoch.In(time.FixedZone("UTC+6", 6*3600)), 16 * time.Hour, time.Date(2025, time.November, 8, 16, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.want.Equal(NextDaily(tt.now, tt.offset)), "got %v", NextDaily(tt.now, tt.offset))
		})
	}
}

func TestIntervalJobFiresAfterDelayThenEveryInterval(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(epoch)
	s := New(clock, logging.Discard())

	ran := make(chan struct{}, 4)
	s.Every("collect", 30*time.Minute, 10*time.Second, func(context.Context) error {
		ran <- struct{}{}
		return nil
	})
	ctx := startScheduler(t, s)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(10 * time.Second)
	waitSignal(t, ran)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(30 * time.Minute)
	waitSignal(t, ran)
}

func TestDailyJobFiresAtOffset(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(epoch)
	s := New(clock, logging.Discard())

	ran := make(chan struct{}, 2)
	s.DailyAt("report", 13*time.Hour, func(context.Context) error {
		ran <- struct{}{}
		return nil
	})
	ctx := startScheduler(t, s)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(59 * time.Minute)
	select {
	case <-ran:
		t.Fatal("daily job fired early")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Minute)
	waitSignal(t, ran)
}

func TestOverlappingTriggerIsDropped(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(epoch)
	s := New(clock, logging.Discard())

	var runs atomic.Int32
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	s.Every("collect", time.Minute, time.Second, func(context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	})
	ctx := startScheduler(t, s)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	waitSignal(t, started)

	// The job is still running: this tick must be skipped, not queued.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	release <- struct{}{}
	select {
	case <-started:
		t.Fatal("overlapping trigger was queued")
	case <-time.After(100 * time.Millisecond):
	}
	assert.EqualValues(t, 1, runs.Load())

	clock.Advance(time.Minute)
	waitSignal(t, started)
	release <- struct{}{}
	assert.EqualValues(t, 2, runs.Load())
}

func TestDoRunsOnWorkerAndReturnsResult(t *testing.T) {
	t.Parallel()

	s := New(clockwork.NewFakeClockAt(epoch), logging.Discard())
	s.Every("collect", time.Hour, time.Hour, func(context.Context) error { return nil })
	ctx := startScheduler(t, s)

	boom := errors.New("boom")
	err := s.Do(ctx, "report", func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	called := false
	require.NoError(t, s.Do(ctx, "report", func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestRunNowUsesRegisteredBody(t *testing.T) {
	t.Parallel()

	s := New(clockwork.NewFakeClockAt(epoch), logging.Discard())
	var runs atomic.Int32
	s.DailyAt("sweep", 16*time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	ctx := startScheduler(t, s)

	require.NoError(t, s.RunNow(ctx, "sweep"))
	require.NoError(t, s.RunNow(ctx, "sweep"))
	assert.EqualValues(t, 2, runs.Load(), "manual invocations are never dropped")
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	t.Parallel()

	s := New(clockwork.NewFakeClockAt(epoch), logging.Discard())
	ctx := startScheduler(t, s)

	err := s.Do(ctx, "collect", func(context.Context) error { panic("nil map") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	require.NoError(t, s.Do(ctx, "collect", func(context.Context) error { return nil }))
}

func TestDoBeforeStartFails(t *testing.T) {
	t.Parallel()

	s := New(clockwork.NewFakeClockAt(epoch), logging.Discard())
	err := s.Do(context.Background(), "report", func(context.Context) error { return nil })
	require.Error(t, err)
}
