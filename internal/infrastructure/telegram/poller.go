package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

const pollErrorPause = 5 * time.Second

// Poller long-polls getUpdates and hands bot commands to a CommandHandler.
type Poller struct {
	notifier *Notifier
	client   *http.Client
	handler  ports.CommandHandler
	timeout  time.Duration
	offset   int64
	logger   *slog.Logger
}

// NewPoller reuses the notifier for replies. Long polls get their own client
// whose timeout outlives the server-side poll timeout.
func NewPoller(notifier *Notifier, handler ports.CommandHandler, timeout time.Duration, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		notifier: notifier,
		client:   &http.Client{Timeout: timeout + 10*time.Second},
		handler:  handler,
		timeout:  timeout,
		logger:   log,
	}
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	Text string `json:"text"`
	Chat struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	} `json:"chat"`
	From *struct {
		Username string `json:"username"`
	} `json:"from"`
}

// Run polls until ctx is cancelled. Transport errors pause the loop briefly.
func (p *Poller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("telegram poll failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollErrorPause):
			}
		}
	}
}

// PollOnce fetches one batch of updates and dispatches every command in it.
func (p *Poller) PollOnce(ctx context.Context) error {
	form := url.Values{}
	form.Set("offset", strconv.FormatInt(p.offset, 10))
	form.Set("timeout", strconv.Itoa(int(p.timeout/time.Second)))
	form.Set("allowed_updates", `["message"]`)

	raw, err := p.notifier.call(ctx, p.client, "getUpdates", form)
	if err != nil {
		return fmt.Errorf("get updates: %w", err)
	}

	var updates []update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return fmt.Errorf("decode updates: %w", err)
	}

	for _, u := range updates {
		if u.UpdateID >= p.offset {
			p.offset = u.UpdateID + 1
		}
		cmd, ok := parseCommand(u.Message)
		if !ok {
			continue
		}

		p.logger.Info("command received", "command", cmd.Name, "chat_id", cmd.ChatID, "from", cmd.Sender)
		reply := p.handler.Handle(ctx, cmd)
		if reply == "" {
			continue
		}
		if err := p.notifier.Reply(ctx, cmd.ChatID, reply); err != nil {
			p.logger.Error("reply failed", "command", cmd.Name, "chat_id", cmd.ChatID, "error", err)
		}
	}
	return nil
}

// parseCommand turns "/add@bot alice Alice Smith" into Command{Name: "add", Args: [...]}.
func parseCommand(msg *message) (domain.Command, bool) {
	if msg == nil || !strings.HasPrefix(msg.Text, "/") {
		return domain.Command{}, false
	}

	fields := strings.Fields(msg.Text)
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return domain.Command{}, false
	}

	cmd := domain.Command{
		ChatID:  strconv.FormatInt(msg.Chat.ID, 10),
		Private: msg.Chat.Type == "private",
		Name:    strings.ToLower(name),
		Args:    fields[1:],
	}
	if msg.From != nil {
		cmd.Sender = msg.From.Username
	}
	return cmd, true
}
