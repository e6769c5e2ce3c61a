package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

const defaultIdentityTimeout = 45 * time.Second

// CollectionOutcome summarizes one collection pass.
type CollectionOutcome struct {
	Day            time.Time
	Identities     int
	NewRecords     int
	SkippedItems   int
	IdentityErrors map[string]error
}

// CollectorDeps wires the driven adapters used by the collector.
type CollectorDeps struct {
	Roster          ports.RosterStore
	Source          ports.ActivitySource
	Metadata        *MetadataCache
	Ledger          ports.Ledger
	Clock           clockwork.Clock
	IdentityTimeout time.Duration
	Logger          *slog.Logger
}

// Collector silently records today's accepted submissions for every tracked identity.
type Collector struct {
	roster   ports.RosterStore
	source   ports.ActivitySource
	metadata *MetadataCache
	ledger   ports.Ledger
	clock    clockwork.Clock
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCollector constructs the ingestion component.
func NewCollector(deps CollectorDeps) *Collector {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.IdentityTimeout <= 0 {
		deps.IdentityTimeout = defaultIdentityTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Collector{
		roster:   deps.Roster,
		source:   deps.Source,
		metadata: deps.Metadata,
		ledger:   deps.Ledger,
		clock:    deps.Clock,
		timeout:  deps.IdentityTimeout,
		logger:   deps.Logger,
	}
}

// Collect polls each identity in isolation. Per-identity failures land in the
// outcome; only an unreadable roster fails the pass.
func (c *Collector) Collect(ctx context.Context) (CollectionOutcome, error) {
	today := domain.DayOf(c.clock.Now())
	outcome := CollectionOutcome{Day: today, IdentityErrors: map[string]error{}}

	identities, err := c.roster.ListIdentities(ctx)
	if err != nil {
		return outcome, fmt.Errorf("list identities: %w", err)
	}
	outcome.Identities = len(identities)
	if len(identities) == 0 {
		c.logger.Info("no identities to track, skipping collection")
		return outcome, nil
	}

	for _, identity := range identities {
		created, skipped, err := c.collectIdentity(ctx, identity, today)
		outcome.NewRecords += created
		outcome.SkippedItems += skipped
		if err != nil {
			outcome.IdentityErrors[identity.Identifier] = err
			c.logger.Warn("collection failed for identity", "identifier", identity.Identifier, "error", err)
		}
	}

	c.logger.Info("collection finished",
		"day", domain.FormatDay(today),
		"identities", outcome.Identities,
		"new_records", outcome.NewRecords,
		"skipped_items", outcome.SkippedItems,
		"failed_identities", len(outcome.IdentityErrors))
	return outcome, nil
}

// collectIdentity runs under its own timeout so one slow lookup cannot stall the pass.
func (c *Collector) collectIdentity(ctx context.Context, identity domain.TrackedIdentity, today time.Time) (created, skipped int, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	activity, err := c.source.FetchRecentActivity(ctx, identity.Identifier)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch activity: %w", err)
	}

	seen := map[string]struct{}{}
	for _, item := range activity {
		if !domain.DayOf(item.SubmittedAt).Equal(today) {
			continue
		}
		if _, dup := seen[item.ItemKey]; dup {
			continue
		}
		seen[item.ItemKey] = struct{}{}

		if _, err := c.metadata.Resolve(ctx, item.ItemKey); err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) || ctx.Err() != nil {
				return created, skipped, err
			}
			// Not recorded now; the next pass that sees the item retries it.
			skipped++
			c.logger.Warn("metadata unresolved, skipping item", "identifier", identity.Identifier, "item", item.ItemKey, "error", err)
			continue
		}

		inserted, err := c.ledger.RecordObservation(ctx, domain.ObservationRecord{
			Identifier: identity.Identifier,
			ItemKey:    item.ItemKey,
			Day:        today,
		})
		if err != nil {
			return created, skipped, fmt.Errorf("record %s: %w", item.ItemKey, err)
		}
		if inserted {
			created++
			c.logger.Debug("new observation", "identifier", identity.Identifier, "item", item.ItemKey)
		}
	}

	return created, skipped, nil
}
