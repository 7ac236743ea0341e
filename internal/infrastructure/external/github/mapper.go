package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v30/github"

	"github.com/devtrophies/trophies/internal/domain/shared"
	"github.com/devtrophies/trophies/internal/domain/trophy"
	"github.com/devtrophies/trophies/pkg/retry"
)

// profileFromUser converts the API user into the domain profile.
// Counters are clamped to zero.
func profileFromUser(u *gh.User, requested string) *trophy.Profile {
	login := u.GetLogin()
	if login == "" {
		login = requested
	}
	return &trophy.Profile{
		Login:       login,
		PublicRepos: shared.NonNegative(u.GetPublicRepos()),
		Followers:   shared.NonNegative(u.GetFollowers()),
		Following:   shared.NonNegative(u.GetFollowing()),
		CreatedAt:   u.GetCreatedAt().Time,
	}
}

// statusOf returns the HTTP status carried by a go-github error, or 0.
func statusOf(err error) int {
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	var rle *gh.RateLimitError
	if errors.As(err, &rle) && rle.Response != nil {
		return rle.Response.StatusCode
	}
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) && abuse.Response != nil {
		return abuse.Response.StatusCode
	}
	return 0
}

func isQuotaError(err error) bool {
	var rle *gh.RateLimitError
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &rle) || errors.As(err, &abuse) {
		return true
	}
	status := statusOf(err)
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

// markRetryable tags 5xx and transport failures for another attempt.
// Everything else, including 404 and quota errors, is final.
func markRetryable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Permanent(err)
	}
	if isQuotaError(err) {
		return retry.Permanent(err)
	}
	status := statusOf(err)
	if status >= http.StatusInternalServerError || status == 0 {
		return retry.Retryable(err)
	}
	return retry.Permanent(err)
}

// countsAsOutage tells the breaker which errors indicate an unhealthy upstream.
// A 404 or an exhausted quota is a valid answer from a healthy API.
func countsAsOutage(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if isQuotaError(err) {
		return false
	}
	status := statusOf(err)
	return status == 0 || status >= http.StatusInternalServerError
}

// mapError converts transport errors into the profile error taxonomy.
func mapError(op, login string, err error) error {
	var target *shared.DomainError
	switch {
	case statusOf(err) == http.StatusNotFound:
		target = shared.ErrUserNotFound
	case isQuotaError(err):
		target = shared.ErrProfileRateLimited
	default:
		// Includes circuit rejections and transport failures
		target = shared.ErrUpstreamUnavailable
	}
	if login == "" {
		return fmt.Errorf("github %s: %w: %w", op, target, err)
	}
	return fmt.Errorf("github %s %s: %w: %w", op, login, target, err)
}
