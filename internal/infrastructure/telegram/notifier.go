package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

const parseModeHTML = "HTML"

var errEntityParse = errors.New("telegram rejected message markup")

// Notifier sends reports and command replies through the Telegram bot API.
type Notifier struct {
	apiBase  string
	botToken string
	client   *http.Client
}

var (
	_ ports.Notifier = (*Notifier)(nil)
	_ ports.Replier  = (*Notifier)(nil)
)

// NewNotifier registers the bot token; apiBase defaults to the public API.
func NewNotifier(apiBase, botToken string) *Notifier {
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}
	return &Notifier{
		apiBase:  strings.TrimSuffix(apiBase, "/"),
		botToken: botToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Send posts an HTML report. If Telegram cannot parse the markup the report is
// re-sent once as plain text so the period is not lost.
func (n *Notifier) Send(ctx context.Context, dest domain.Destination, text string) error {
	if dest.ChannelID == "" {
		return domain.ErrUnregistered
	}

	err := n.sendMessage(ctx, dest.ChannelID, text, parseModeHTML)
	if !errors.Is(err, errEntityParse) {
		return err
	}

	plain, perr := PlainText(text)
	if perr != nil {
		return fmt.Errorf("%w (plain-text fallback: %v)", err, perr)
	}
	return n.sendMessage(ctx, dest.ChannelID, plain, "")
}

// Reply answers a command with plain text.
func (n *Notifier) Reply(ctx context.Context, chatID, text string) error {
	return n.sendMessage(ctx, chatID, text, "")
}

func (n *Notifier) sendMessage(ctx context.Context, chatID, text, parseMode string) error {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")
	if parseMode != "" {
		form.Set("parse_mode", parseMode)
	}

	_, err := n.call(ctx, n.client, "sendMessage", form)
	return err
}

// call invokes a bot API method and returns the raw result payload.
func (n *Notifier) call(ctx context.Context, client *http.Client, method string, form url.Values) (json.RawMessage, error) {
	if n.botToken == "" || client == nil {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", n.apiBase, n.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("telegram %s: %s: decode: %w", method, resp.Status, err)
	}

	if resp.StatusCode != http.StatusOK || !body.OK {
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(body.Description, "can't parse entities") {
			return nil, fmt.Errorf("%w: %s", errEntityParse, body.Description)
		}
		return nil, fmt.Errorf("telegram error: %s: %s", resp.Status, body.Description)
	}

	return body.Result, nil
}

// PlainText strips HTML markup, keeping only visible text.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return doc.Text(), nil
}
