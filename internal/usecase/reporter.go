package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

// ReportGroup is one identity block of a report.
type ReportGroup struct {
	DisplayName string
	Items       []domain.MetadataEntry
}

// Report is the rendered summary for one reference day.
type Report struct {
	Day     time.Time
	Label   string
	Groups  []ReportGroup
	Orphans int
	Text    string
}

// Empty reports whether nothing was solved on the day.
func (r Report) Empty() bool {
	return len(r.Groups) == 0
}

// ReporterDeps wires the reporter's collaborators.
type ReporterDeps struct {
	Roster         ports.RosterStore
	Ledger         ports.Ledger
	Notifier       ports.Notifier
	Clock          clockwork.Clock
	ProblemBaseURL string
	Logger         *slog.Logger
}

// Reporter aggregates a day's observations into one message.
type Reporter struct {
	roster   ports.RosterStore
	ledger   ports.Ledger
	notifier ports.Notifier
	clock    clockwork.Clock
	baseURL  string
	logger   *slog.Logger
}

// NewReporter constructs the report generator.
func NewReporter(deps ReporterDeps) *Reporter {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.ProblemBaseURL == "" {
		deps.ProblemBaseURL = "https://leetcode.com/problems/"
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Reporter{
		roster:   deps.Roster,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		baseURL:  deps.ProblemBaseURL,
		logger:   deps.Logger,
	}
}

// Today is the current reference day.
func (r *Reporter) Today() time.Time {
	return domain.DayOf(r.clock.Now())
}

// Yesterday is the reference day before Today.
func (r *Reporter) Yesterday() time.Time {
	return domain.AddDays(r.Today(), -1)
}

// Send builds the report for day and delivers it exactly once. Without a
// registered destination it returns domain.ErrUnregistered and builds nothing.
// Delivery failures are returned to the caller; there is no retry here.
func (r *Reporter) Send(ctx context.Context, day time.Time) (Report, error) {
	dest, err := r.roster.Destination(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load destination: %w", err)
	}

	report, err := r.Build(ctx, day)
	if err != nil {
		return Report{}, err
	}

	if r.notifier == nil {
		return report, fmt.Errorf("deliver report: no notifier configured")
	}
	if err := r.notifier.Send(ctx, dest, report.Text); err != nil {
		return report, fmt.Errorf("deliver report for %s: %w", domain.FormatDay(day), err)
	}

	r.logger.Info("report delivered",
		"day", domain.FormatDay(report.Day),
		"destination", dest.ChannelID,
		"groups", len(report.Groups),
		"empty", report.Empty())
	return report, nil
}

// Build reads the ledger for day and renders the report text without sending it.
func (r *Reporter) Build(ctx context.Context, day time.Time) (Report, error) {
	day = domain.DayOf(day)

	rows, err := r.ledger.ObservationsForDay(ctx, day)
	if err != nil {
		return Report{}, fmt.Errorf("load observations for %s: %w", domain.FormatDay(day), err)
	}

	report := Report{Day: day, Label: r.label(day)}
	report.Groups, report.Orphans = groupRows(rows)
	if report.Orphans > 0 {
		r.logger.Info("skipping observations of untracked identities", "day", domain.FormatDay(day), "rows", report.Orphans)
	}

	report.Text = renderReport(report, r.baseURL)
	return report, nil
}

func (r *Reporter) label(day time.Time) string {
	switch {
	case day.Equal(r.Today()):
		return "Today"
	case day.Equal(r.Yesterday()):
		return "Yesterday"
	default:
		return ""
	}
}

// groupRows groups tracked rows by display name, ordered by name, with items
// ordered by title then slug. Rows of untracked identities are counted, not shown.
func groupRows(rows []domain.ReportRow) ([]ReportGroup, int) {
	orphans := 0
	byName := map[string]map[string]domain.MetadataEntry{}
	for _, row := range rows {
		if !row.Tracked {
			orphans++
			continue
		}
		items, ok := byName[row.DisplayName]
		if !ok {
			items = map[string]domain.MetadataEntry{}
			byName[row.DisplayName] = items
		}
		items[row.Item.ItemKey] = row.Item
	}

	groups := make([]ReportGroup, 0, len(byName))
	for name, items := range byName {
		group := ReportGroup{DisplayName: name, Items: make([]domain.MetadataEntry, 0, len(items))}
		for _, item := range items {
			group.Items = append(group.Items, item)
		}
		sort.Slice(group.Items, func(i, j int) bool {
			a, b := group.Items[i], group.Items[j]
			if a.Title != b.Title {
				return a.Title < b.Title
			}
			return a.ItemKey < b.ItemKey
		})
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].DisplayName < groups[j].DisplayName
	})

	return groups, orphans
}
