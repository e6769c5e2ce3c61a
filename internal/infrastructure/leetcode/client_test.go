package leetcode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LeetTracker/internal/config"
	"LeetTracker/internal/domain"
)

func newTestClient(url string, retries int) *Client {
	return NewClient(config.LeetCodeConfig{
		Endpoint:        url + "/graphql",
		SubmissionLimit: 15,
		RequestTimeout:  5 * time.Second,
		MaxRetries:      retries,
	}, nil)
}

func TestFetchRecentActivity(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Variables["username"] != "alice123" {
			t.Errorf("unexpected username: %v", req.Variables["username"])
		}
		if r.Header.Get("Referer") == "" {
			t.Errorf("missing referer header")
		}
		_, _ = w.Write([]byte(`{"data":{"recentAcSubmissionList":[
			{"id":"2","title":"Two Sum","titleSlug":"two-sum","timestamp":"1762603200"},
			{"id":"1","title":"LRU Cache","titleSlug":"lru-cache","timestamp":"1762516800"}
		]}}`))
	}))
	defer server.Close()

	activity, err := newTestClient(server.URL, 0).FetchRecentActivity(context.Background(), "alice123")
	require.NoError(t, err)
	require.Len(t, activity, 2)

	assert.Equal(t, "two-sum", activity[0].ItemKey)
	assert.Equal(t, time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC), activity[0].SubmittedAt)
	assert.Equal(t, "lru-cache", activity[1].ItemKey)
}

func TestFetchRecentActivityNullListIsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"recentAcSubmissionList":null}}`))
	}))
	defer server.Close()

	activity, err := newTestClient(server.URL, 0).FetchRecentActivity(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, activity)
}

func TestFetchRecentActivityErrorTaxonomy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: domain.ErrRateLimited},
		{name: "server error", status: http.StatusBadGateway, body: "upstream down", wantErr: domain.ErrSourceUnavailable},
		{name: "graphql errors", status: http.StatusOK, body: `{"errors":[{"message":"user does not exist"}]}`, wantErr: domain.ErrMalformedResponse},
		{name: "broken json", status: http.StatusOK, body: `{"data":`, wantErr: domain.ErrMalformedResponse},
		{name: "bad timestamp", status: http.StatusOK, body: `{"data":{"recentAcSubmissionList":[{"id":"1","titleSlug":"two-sum","timestamp":"soon"}]}}`, wantErr: domain.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL, 0).FetchRecentActivity(context.Background(), "alice123")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQueryRetriesRateLimited(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"question":{"difficulty":"Medium","title":"LRU Cache"}}}`))
	}))
	defer server.Close()

	entry, err := newTestClient(server.URL, 1).FetchItemMetadata(context.Background(), "lru-cache")
	require.NoError(t, err)
	assert.Equal(t, domain.MetadataEntry{ItemKey: "lru-cache", Difficulty: domain.DifficultyMedium, Title: "LRU Cache"}, entry)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetchItemMetadataMissingQuestion(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":{"question":null}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 3).FetchItemMetadata(context.Background(), "no-such-problem")
	require.ErrorIs(t, err, domain.ErrMalformedResponse)
	assert.EqualValues(t, 1, calls.Load(), "malformed responses are not retried")
}

func TestSiteRoot(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://leetcode.com/", siteRoot("https://leetcode.com/graphql"))
	assert.Equal(t, "https://leetcode.com/", siteRoot("https://leetcode.com/graphql/"))
}
