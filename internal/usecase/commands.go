package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

const helpText = `Available commands:

User management:
  /add <username> <display name> - start tracking a LeetCode user
  /remove <username> - stop tracking a LeetCode user
  /list - show tracked users

Group setup:
  /register_group - (run in your group) post reports here
  /send_report - post yesterday's report now
  /send_today - post today's report so far`

const startText = `Welcome to LeetTracker!

I post one daily summary of the LeetCode problems tracked users solved.

1. Add me to your Telegram group.
2. Make me an admin so I can post messages.
3. Run /register_group in that group.
4. Use /add <username> <display name> to start tracking.`

// Commands maps operator commands onto roster, destination and report operations.
type Commands struct {
	roster   ports.RosterStore
	reporter *Reporter
	runner   ports.JobRunner
	logger   *slog.Logger
}

var _ ports.CommandHandler = (*Commands)(nil)

// NewCommands wires the command surface. Reports run through runner so they
// queue behind any in-flight job; a nil runner calls the reporter directly.
func NewCommands(roster ports.RosterStore, reporter *Reporter, runner ports.JobRunner, log *slog.Logger) *Commands {
	if log == nil {
		log = slog.Default()
	}
	return &Commands{roster: roster, reporter: reporter, runner: runner, logger: log}
}

// Handle executes cmd and returns the reply text. Unknown commands are ignored.
func (c *Commands) Handle(ctx context.Context, cmd domain.Command) string {
	switch cmd.Name {
	case "start":
		return startText
	case "help":
		return helpText
	case "register_group":
		return c.registerGroup(ctx, cmd)
	case "add":
		return c.add(ctx, cmd.Args)
	case "remove":
		return c.remove(ctx, cmd.Args)
	case "list":
		return c.list(ctx)
	case "send_report":
		return c.sendReport(ctx, c.reporter.Yesterday(), "yesterday")
	case "send_today":
		return c.sendReport(ctx, c.reporter.Today(), "today")
	default:
		return ""
	}
}

func (c *Commands) registerGroup(ctx context.Context, cmd domain.Command) string {
	if cmd.Private {
		return "Please run this command inside the group where reports should be posted, not in a private chat."
	}
	if err := c.RegisterDestination(ctx, cmd.ChatID); err != nil {
		return fmt.Sprintf("Could not register this group: %v", err)
	}
	return fmt.Sprintf("Success! This group (chat id %s) now receives LeetCode reports.", cmd.ChatID)
}

func (c *Commands) add(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return "Usage: /add <leetcode_username> <display_name>\nExample: /add neal_wu Neal Wu"
	}
	identity := domain.TrackedIdentity{
		Identifier:  strings.TrimSpace(args[0]),
		DisplayName: strings.Join(args[1:], " "),
	}

	err := c.AddIdentity(ctx, identity)
	switch {
	case errors.Is(err, domain.ErrAlreadyTracked):
		return fmt.Sprintf("User '%s' is already being tracked.", identity.Identifier)
	case err != nil:
		return fmt.Sprintf("Could not add the user: %v", err)
	}
	return fmt.Sprintf("User '%s' is now being tracked as '%s'.", identity.Identifier, identity.DisplayName)
}

func (c *Commands) remove(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Usage: /remove <leetcode_username>\nExample: /remove neal_wu"
	}
	identifier := strings.TrimSpace(args[0])

	err := c.RemoveIdentity(ctx, identifier)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Sprintf("User '%s' was not found in the tracking list.", identifier)
	case err != nil:
		return fmt.Sprintf("Could not remove the user: %v", err)
	}
	return fmt.Sprintf("User '%s' has been removed.", identifier)
}

func (c *Commands) list(ctx context.Context) string {
	identities, err := c.roster.ListIdentities(ctx)
	if err != nil {
		return fmt.Sprintf("Could not list users: %v", err)
	}
	if len(identities) == 0 {
		return "No LeetCode users are tracked yet. Use /add <username> <display name> to add one."
	}

	var b strings.Builder
	b.WriteString("Currently tracked LeetCode users:\n")
	for i, identity := range identities {
		fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, identity.DisplayName, identity.Identifier)
	}
	return b.String()
}

func (c *Commands) sendReport(ctx context.Context, day time.Time, which string) string {
	report, err := c.TriggerReport(ctx, day)
	switch {
	case errors.Is(err, domain.ErrUnregistered):
		return "No group is registered yet. Run /register_group in the group that should receive reports."
	case err != nil:
		c.logger.Error("manual report failed", "day", domain.FormatDay(day), "error", err)
		return fmt.Sprintf("The %s report could not be delivered: %v", which, err)
	case report.Empty():
		return fmt.Sprintf("No solved problems found for %s.", which)
	}
	return ""
}

// RegisterDestination sets the single report destination, replacing any previous one.
func (c *Commands) RegisterDestination(ctx context.Context, channelID string) error {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return fmt.Errorf("empty channel id: %w", domain.ErrInvalidArgument)
	}
	if err := c.roster.RegisterDestination(ctx, domain.Destination{ChannelID: channelID}); err != nil {
		return err
	}
	c.logger.Info("destination registered", "channel_id", channelID)
	return nil
}

// AddIdentity starts tracking identity; an existing identifier is left untouched.
func (c *Commands) AddIdentity(ctx context.Context, identity domain.TrackedIdentity) error {
	if identity.Identifier == "" || strings.TrimSpace(identity.DisplayName) == "" {
		return fmt.Errorf("identifier and display name are required: %w", domain.ErrInvalidArgument)
	}
	added, err := c.roster.AddIdentity(ctx, identity)
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("%s: %w", identity.Identifier, domain.ErrAlreadyTracked)
	}
	c.logger.Info("identity added", "identifier", identity.Identifier, "display_name", identity.DisplayName)
	return nil
}

// RemoveIdentity stops tracking identifier. Its recorded observations stay in the ledger.
func (c *Commands) RemoveIdentity(ctx context.Context, identifier string) error {
	removed, err := c.roster.RemoveIdentity(ctx, identifier)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%s: %w", identifier, domain.ErrNotFound)
	}
	c.logger.Info("identity removed", "identifier", identifier)
	return nil
}

// TriggerReport builds and delivers the report for day. It reads whatever the
// ledger holds and never forces a collection pass.
func (c *Commands) TriggerReport(ctx context.Context, day time.Time) (Report, error) {
	if c.runner == nil {
		return c.reporter.Send(ctx, day)
	}

	var report Report
	err := c.runner.Do(ctx, JobReport, func(ctx context.Context) error {
		var err error
		report, err = c.reporter.Send(ctx, day)
		return err
	})
	return report, err
}
