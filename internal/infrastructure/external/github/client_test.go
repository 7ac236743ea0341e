package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devtrophies/trophies/internal/domain/shared"
	"github.com/devtrophies/trophies/pkg/circuitbreaker"
)

func newTestClient(t *testing.T, handler http.Handler, mutate ...func(*ClientConfig)) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.RequestsPerSecond = 0
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = time.Millisecond
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestFetchProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"login":"octocat","public_repos":8,"followers":20,"following":3,"created_at":"2011-01-25T18:44:36Z"}`)
	})

	c := newTestClient(t, mux)
	p, err := c.FetchProfile(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, "octocat", p.Login)
	assert.Equal(t, 8, p.PublicRepos)
	assert.Equal(t, 20, p.Followers)
	assert.Equal(t, 3, p.Following)
	assert.Equal(t, time.Date(2011, 1, 25, 18, 44, 36, 0, time.UTC), p.CreatedAt.UTC())
}

func TestFetchProfile_SendsToken(t *testing.T) {
	var auth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"login":"octocat"}`)
	})

	c := newTestClient(t, mux, func(cfg *ClientConfig) { cfg.Token = "s3cret" })
	_, err := c.FetchProfile(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", auth.Load())
}

func TestFetchProfile_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
			},
			want: shared.ErrUserNotFound,
		},
		{
			name: "quota exhausted",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeJSON(w, http.StatusForbidden, `{"message":"API rate limit exceeded for 127.0.0.1."}`)
			},
			want: shared.ErrProfileRateLimited,
		},
		{
			name: "too many requests",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusTooManyRequests, `{"message":"slow down"}`)
			},
			want: shared.ErrProfileRateLimited,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadGateway, `{"message":"bad gateway"}`)
			},
			want: shared.ErrUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.FetchProfile(context.Background(), "octocat")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchProfile_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusInternalServerError, `{"message":"boom"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"login":"octocat","followers":1}`)
	})

	c := newTestClient(t, handler, func(cfg *ClientConfig) { cfg.MaxRetries = 2 })
	p, err := c.FetchProfile(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Followers)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetchProfile_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
	})

	c := newTestClient(t, handler, func(cfg *ClientConfig) { cfg.BreakerThreshold = 1 })
	for i := 0; i < 3; i++ {
		_, err := c.FetchProfile(context.Background(), "ghost")
		assert.ErrorIs(t, err, shared.ErrUserNotFound)
	}
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, circuitbreaker.StateClosed, c.BreakerState())
}

func TestBreakerOpensOnOutage(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{"message":"down"}`)
	})

	c := newTestClient(t, handler, func(cfg *ClientConfig) {
		cfg.MaxRetries = 0
		cfg.BreakerThreshold = 2
		cfg.BreakerTimeout = time.Hour
	})

	for i := 0; i < 2; i++ {
		_, err := c.FetchProfile(context.Background(), "octocat")
		assert.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
	}
	require.Equal(t, circuitbreaker.StateOpen, c.BreakerState())

	_, err := c.FetchProfile(context.Background(), "octocat")
	assert.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetchStarsTotal_Paginates(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "owner", r.URL.Query().Get("type"))

		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/users/octocat/repos?page=2&per_page=100>; rel="next"`, srvURL))
			writeJSON(w, http.StatusOK, `[{"stargazers_count":10},{"stargazers_count":5}]`)
		case "2":
			writeJSON(w, http.StatusOK, `[{"stargazers_count":7},{}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	cfg := DefaultClientConfig()
	cfg.BaseURL = srv.URL
	c, err := NewClient(cfg)
	require.NoError(t, err)

	total, err := c.FetchStarsTotal(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, 22, total)
}

func TestFetchStarsTotal_PageCap(t *testing.T) {
	var srvURL string
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Link", fmt.Sprintf(`<%s/users/octocat/repos?page=99>; rel="next"`, srvURL))
		writeJSON(w, http.StatusOK, `[{"stargazers_count":1}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	cfg := DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.MaxRepoPages = 3
	c, err := NewClient(cfg)
	require.NoError(t, err)

	total, err := c.FetchStarsTotal(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.EqualValues(t, 3, calls.Load())
}

func TestSearchCounts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		switch {
		case strings.Contains(q, "type:pr"):
			assert.Equal(t, "author:octocat type:pr", q)
			writeJSON(w, http.StatusOK, `{"total_count":60,"incomplete_results":false,"items":[]}`)
		case strings.Contains(q, "type:issue"):
			writeJSON(w, http.StatusOK, `{"total_count":20,"incomplete_results":false,"items":[]}`)
		}
	})

	c := newTestClient(t, mux)

	prs, err := c.FetchPullRequestCount(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, 60, prs)

	issues, err := c.FetchIssueCount(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, 20, issues)
}

func TestRateLimitStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"resources":{"core":{"limit":5000,"remaining":4999,"reset":1700000000}}}`)
	})

	c := newTestClient(t, mux)
	remaining, limit, err := c.RateLimitStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4999, remaining)
	assert.Equal(t, 5000, limit)
}
