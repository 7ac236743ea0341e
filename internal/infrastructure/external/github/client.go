// Package github implements the profile provider on top of the GitHub REST API.
// It handles authentication, outbound rate limiting, retries and circuit breaking.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v30/github"
	"github.com/samber/lo"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/devtrophies/trophies/internal/domain/trophy"
	"github.com/devtrophies/trophies/pkg/circuitbreaker"
	"github.com/devtrophies/trophies/pkg/logger"
	"github.com/devtrophies/trophies/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the GitHub API client.
type ClientConfig struct {
	// BaseURL is the REST API root, e.g. https://api.github.com/
	BaseURL string

	// Token is a personal access token. Empty means anonymous access.
	Token string

	UserAgent string

	// Timeout is the per-request HTTP timeout
	Timeout time.Duration

	// Outbound token bucket
	RequestsPerSecond float64
	Burst             int

	// Retries for 5xx and transport failures
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Circuit breaker
	BreakerThreshold   int
	BreakerTimeout     time.Duration
	BreakerHalfOpenMax int

	// MaxRepoPages caps star summation at MaxRepoPages*100 repositories
	MaxRepoPages int

	// HTTPClient is the base client; nil uses a fresh one.
	HTTPClient *http.Client

	Logger *logger.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:            "https://api.github.com/",
		UserAgent:          "devtrophies",
		Timeout:            10 * time.Second,
		RequestsPerSecond:  10,
		Burst:              5,
		MaxRetries:         2,
		RetryBaseDelay:     500 * time.Millisecond,
		RetryMaxDelay:      5 * time.Second,
		BreakerThreshold:   5,
		BreakerTimeout:     30 * time.Second,
		BreakerHalfOpenMax: 2,
		MaxRepoPages:       10,
	}
}

const reposPerPage = 100

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client fetches profile data from GitHub. It is safe for concurrent use
// and keeps no per-request state.
type Client struct {
	api          *gh.Client
	limiter      *rate.Limiter
	breaker      *circuitbreaker.CircuitBreaker
	retrier      *retry.Retrier
	log          *logger.Logger
	maxRepoPages int
}

// NewClient creates a new GitHub API client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.MaxRepoPages <= 0 {
		config.MaxRepoPages = DefaultClientConfig().MaxRepoPages
	}

	base := &http.Client{}
	if config.HTTPClient != nil {
		copied := *config.HTTPClient
		base = &copied
	}

	httpClient := base
	if config.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token}))
	}
	if config.Timeout > 0 {
		httpClient.Timeout = config.Timeout
	}

	api := gh.NewClient(httpClient)
	if config.BaseURL != "" {
		baseURL := config.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		api.BaseURL = u
	}
	if config.UserAgent != "" {
		api.UserAgent = config.UserAgent
	}

	log := config.Logger.With(logger.Component("github"))

	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &Client{
		api:     api,
		limiter: rate.NewLimiter(limit, burst),
		breaker: circuitbreaker.GitHubAPIBreaker(
			config.BreakerThreshold,
			config.BreakerTimeout,
			config.BreakerHalfOpenMax,
			countsAsOutage,
			func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			},
		),
		retrier: retry.GitHubAPIRetrier(config.MaxRetries, config.RetryBaseDelay, config.RetryMaxDelay,
			func(attempt int, err error, delay time.Duration) {
				log.Debug("retrying github request", logger.Attempt(attempt), logger.Err(err), logger.Duration("delay", delay))
			},
		),
		log:          log,
		maxRepoPages: config.MaxRepoPages,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// FetchProfile fetches the primary user record.
// Errors are UserNotFound, RateLimited or UpstreamUnavailable.
func (c *Client) FetchProfile(ctx context.Context, login string) (*trophy.Profile, error) {
	var user *gh.User
	err := c.call(ctx, func(ctx context.Context) error {
		u, _, err := c.api.Users.Get(ctx, login)
		user = u
		return err
	})
	if err != nil {
		return nil, mapError("FetchProfile", login, err)
	}
	return profileFromUser(user, login), nil
}

// FetchStarsTotal sums stargazers over the user's owned repositories.
// Pagination stops after MaxRepoPages pages.
func (c *Client) FetchStarsTotal(ctx context.Context, login string) (int, error) {
	opts := &gh.RepositoryListOptions{
		Type:        "owner",
		ListOptions: gh.ListOptions{PerPage: reposPerPage},
	}

	total := 0
	for page := 1; page <= c.maxRepoPages; page++ {
		opts.Page = page

		var (
			repos []*gh.Repository
			resp  *gh.Response
		)
		err := c.call(ctx, func(ctx context.Context) error {
			var err error
			repos, resp, err = c.api.Repositories.List(ctx, login, opts)
			return err
		})
		if err != nil {
			return 0, mapError("FetchStarsTotal", login, err)
		}

		total += lo.SumBy(repos, func(r *gh.Repository) int { return r.GetStargazersCount() })

		if resp == nil || resp.NextPage == 0 {
			return total, nil
		}
	}

	c.log.Debug("repository pagination capped", logger.Login(login), logger.Int("pages", c.maxRepoPages))
	return total, nil
}

// FetchPullRequestCount counts pull requests authored by the user.
func (c *Client) FetchPullRequestCount(ctx context.Context, login string) (int, error) {
	return c.searchTotal(ctx, "FetchPullRequestCount", login, "type:pr")
}

// FetchIssueCount counts issues authored by the user.
func (c *Client) FetchIssueCount(ctx context.Context, login string) (int, error) {
	return c.searchTotal(ctx, "FetchIssueCount", login, "type:issue")
}

func (c *Client) searchTotal(ctx context.Context, op, login, qualifier string) (int, error) {
	query := fmt.Sprintf("author:%s %s", login, qualifier)
	opts := &gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: 1}}

	var result *gh.IssuesSearchResult
	err := c.call(ctx, func(ctx context.Context) error {
		r, _, err := c.api.Search.Issues(ctx, query, opts)
		result = r
		return err
	})
	if err != nil {
		return 0, mapError(op, login, err)
	}
	return result.GetTotal(), nil
}

// RateLimitStatus reports the remaining core quota. The endpoint
// itself does not consume quota, so readiness probes use it.
func (c *Client) RateLimitStatus(ctx context.Context) (remaining, limit int, err error) {
	var limits *gh.RateLimits
	err = c.call(ctx, func(ctx context.Context) error {
		l, _, err := c.api.RateLimits(ctx)
		limits = l
		return err
	})
	if err != nil {
		return 0, 0, mapError("RateLimitStatus", "", err)
	}
	core := limits.GetCore()
	if core == nil {
		return 0, 0, nil
	}
	return core.Remaining, core.Limit, nil
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// BreakerOpen reports whether requests are currently being rejected.
func (c *Client) BreakerOpen() bool {
	return c.breaker.State() == circuitbreaker.StateOpen
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST PIPELINE
// ══════════════════════════════════════════════════════════════════════════════

// call runs fn through breaker → retrier → limiter.
func (c *Client) call(ctx context.Context, fn func(context.Context) error) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
			return markRetryable(fn(ctx))
		})
	})
}
