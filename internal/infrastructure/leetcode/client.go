package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"LeetTracker/internal/config"
	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

const (
	recentSubmissionsQuery = `query getRecentAcSubmissionList($username: String!, $limit: Int!) {
  recentAcSubmissionList(username: $username, limit: $limit) {
    id
    title
    titleSlug
    timestamp
  }
}`

	questionQuery = `query questionData($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    difficulty
    title
  }
}`

	userAgent = "Mozilla/5.0 (compatible; LeetTracker/1.0)"
)

// Client talks to the LeetCode GraphQL endpoint.
type Client struct {
	endpoint   string
	siteURL    string
	limit      int
	maxRetries uint64
	http       *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var (
	_ ports.ActivitySource = (*Client)(nil)
	_ ports.MetadataSource = (*Client)(nil)
)

// NewClient creates a throttled client from configuration.
func NewClient(cfg config.LeetCodeConfig, log *slog.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	retries := 0
	if cfg.MaxRetries > 0 {
		retries = cfg.MaxRetries
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		siteURL:    siteRoot(cfg.Endpoint),
		limit:      cfg.SubmissionLimit,
		maxRetries: uint64(retries),
		http:       &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     log,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type recentSubmissionsResponse struct {
	Data struct {
		RecentAcSubmissionList []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			TitleSlug string `json:"titleSlug"`
			Timestamp string `json:"timestamp"`
		} `json:"recentAcSubmissionList"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type questionResponse struct {
	Data struct {
		Question *struct {
			Difficulty string `json:"difficulty"`
			Title      string `json:"title"`
		} `json:"question"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// FetchRecentActivity returns the user's latest accepted submissions, most recent first.
func (c *Client) FetchRecentActivity(ctx context.Context, username string) ([]domain.Activity, error) {
	var resp recentSubmissionsResponse
	req := graphQLRequest{
		Query:     recentSubmissionsQuery,
		Variables: map[string]any{"username": username, "limit": c.limit},
	}
	if err := c.query(ctx, req, c.siteURL+username+"/", &resp); err != nil {
		return nil, fmt.Errorf("recent submissions for %s: %w", username, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("recent submissions for %s: %s: %w", username, resp.Errors[0].Message, domain.ErrMalformedResponse)
	}

	activity := make([]domain.Activity, 0, len(resp.Data.RecentAcSubmissionList))
	for _, sub := range resp.Data.RecentAcSubmissionList {
		seconds, err := strconv.ParseInt(sub.Timestamp, 10, 64)
		if err != nil || sub.TitleSlug == "" {
			return nil, fmt.Errorf("submission %s for %s: bad entry: %w", sub.ID, username, domain.ErrMalformedResponse)
		}
		activity = append(activity, domain.Activity{
			ItemKey:     sub.TitleSlug,
			Title:       sub.Title,
			SubmittedAt: time.Unix(seconds, 0).UTC(),
		})
	}

	c.debug("fetched submissions", "username", username, "count", len(activity))
	return activity, nil
}

// FetchItemMetadata resolves a problem's difficulty and title by slug.
func (c *Client) FetchItemMetadata(ctx context.Context, slug string) (domain.MetadataEntry, error) {
	var resp questionResponse
	req := graphQLRequest{
		Query:     questionQuery,
		Variables: map[string]any{"titleSlug": slug},
	}
	if err := c.query(ctx, req, c.siteURL+"problems/"+slug+"/", &resp); err != nil {
		return domain.MetadataEntry{}, fmt.Errorf("question %s: %w", slug, err)
	}
	if len(resp.Errors) > 0 {
		return domain.MetadataEntry{}, fmt.Errorf("question %s: %s: %w", slug, resp.Errors[0].Message, domain.ErrMalformedResponse)
	}

	q := resp.Data.Question
	if q == nil || q.Title == "" {
		return domain.MetadataEntry{}, fmt.Errorf("question %s: no data: %w", slug, domain.ErrMalformedResponse)
	}
	difficulty, err := domain.ParseDifficulty(q.Difficulty)
	if err != nil {
		return domain.MetadataEntry{}, fmt.Errorf("question %s: %w", slug, err)
	}

	return domain.MetadataEntry{ItemKey: slug, Difficulty: difficulty, Title: q.Title}, nil
}

// query posts a GraphQL request, retrying throttled and unavailable responses
// with exponential backoff until ctx expires or retries run out.
func (c *Client) query(ctx context.Context, payload graphQLRequest, referer string, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.post(ctx, body, referer, v)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrSourceUnavailable):
			c.debug("retryable leetcode failure", "attempt", attempt, "error", err)
			return err
		default:
			return backoff.Permanent(err)
		}
	}, policy)
}

func (c *Client) post(ctx context.Context, body []byte, referer string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("do request: %w", ctx.Err())
		}
		return fmt.Errorf("do request: %w: %w", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("leetcode returned %s: %w", resp.Status, domain.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("leetcode returned %s: %s: %w", resp.Status, strings.TrimSpace(string(snippet)), domain.ErrSourceUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w: %w", domain.ErrMalformedResponse, err)
	}
	return nil
}

// siteRoot derives https://host/ from the GraphQL endpoint for Referer headers.
func siteRoot(endpoint string) string {
	root := strings.TrimSuffix(endpoint, "/")
	root = strings.TrimSuffix(root, "/graphql")
	return root + "/"
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
