package ports

import (
	"context"
	"time"

	"LeetTracker/internal/domain"
)

// ActivitySource returns recent accepted submissions, most recent first.
type ActivitySource interface {
	FetchRecentActivity(ctx context.Context, identifier string) ([]domain.Activity, error)
}

// MetadataSource resolves a problem's difficulty and title upstream.
type MetadataSource interface {
	FetchItemMetadata(ctx context.Context, itemKey string) (domain.MetadataEntry, error)
}

// Notifier delivers formatted report text to a destination.
type Notifier interface {
	Send(ctx context.Context, dest domain.Destination, text string) error
}

// Replier answers an operator command in the chat it came from.
type Replier interface {
	Reply(ctx context.Context, chatID, text string) error
}

// CommandHandler turns an operator command into a reply; empty means no reply.
type CommandHandler interface {
	Handle(ctx context.Context, cmd domain.Command) string
}

// RosterStore keeps tracked identities and the delivery destination.
type RosterStore interface {
	AddIdentity(ctx context.Context, identity domain.TrackedIdentity) (bool, error)
	RemoveIdentity(ctx context.Context, identifier string) (bool, error)
	ListIdentities(ctx context.Context) ([]domain.TrackedIdentity, error)
	RegisterDestination(ctx context.Context, dest domain.Destination) error
	Destination(ctx context.Context) (domain.Destination, error)
}

// MetadataStore is the permanent problem metadata cache.
type MetadataStore interface {
	LookupMetadata(ctx context.Context, itemKey string) (domain.MetadataEntry, bool, error)
	SaveMetadata(ctx context.Context, entry domain.MetadataEntry) error
}

// Ledger records observations at most once per (identifier, item, day).
type Ledger interface {
	RecordObservation(ctx context.Context, rec domain.ObservationRecord) (bool, error)
	ObservationsForDay(ctx context.Context, day time.Time) ([]domain.ReportRow, error)
	DeleteObservationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobFunc is the body of a scheduled or manually invoked job.
type JobFunc func(ctx context.Context) error

// JobRunner executes work on the scheduler's worker under a job's name.
type JobRunner interface {
	Do(ctx context.Context, name string, job JobFunc) error
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	JobRunner
	Every(name string, interval, firstDelay time.Duration, job JobFunc)
	DailyAt(name string, offset time.Duration, job JobFunc)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
