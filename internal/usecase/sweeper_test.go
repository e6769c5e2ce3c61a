package usecase

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/logging"
)

func TestSweepKeepsHorizon(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ctx := context.Background()
	for offset := 0; offset <= 3; offset++ {
		_, err := store.RecordObservation(ctx, domain.ObservationRecord{
			Identifier: "alice123",
			ItemKey:    "two-sum",
			Day:        domain.AddDays(today, -offset),
		})
		require.NoError(t, err)
	}
	require.NoError(t, store.SaveMetadata(ctx, twoSum))

	sweeper := NewSweeper(store, clockwork.NewFakeClockAt(now), logging.Discard())

	deleted, err := sweeper.Sweep(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	assert.True(t, store.hasObservation("alice123", "two-sum", domain.AddDays(today, -2)))
	assert.False(t, store.hasObservation("alice123", "two-sum", domain.AddDays(today, -3)))

	deleted, err = sweeper.Sweep(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Equal(t, 3, store.observationCount())

	_, ok, err := store.LookupMetadata(ctx, "two-sum")
	require.NoError(t, err)
	assert.True(t, ok, "metadata outlives observations")
}

func TestSweepRejectsNegativeHorizon(t *testing.T) {
	t.Parallel()

	sweeper := NewSweeper(newMemStore(), clockwork.NewFakeClockAt(now), logging.Discard())
	_, err := sweeper.Sweep(context.Background(), -1)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSweptItemIsRecordedAgain(t *testing.T) {
	t.Parallel()

	f := newCollectorFixture(t)
	f.track(t, "alice123", "Alice")
	f.source.activity["alice123"] = []domain.Activity{{ItemKey: "two-sum", SubmittedAt: now}}

	_, err := f.store.RecordObservation(context.Background(), domain.ObservationRecord{
		Identifier: "alice123",
		ItemKey:    "two-sum",
		Day:        domain.AddDays(today, -5),
	})
	require.NoError(t, err)

	_, err = NewSweeper(f.store, clockwork.NewFakeClockAt(now), logging.Discard()).Sweep(context.Background(), 2)
	require.NoError(t, err)

	outcome, err := f.collector.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.NewRecords)
	assert.Equal(t, 1, f.store.observationCount())
}
