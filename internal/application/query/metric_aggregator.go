// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devtrophies/trophies/internal/domain/shared"
	"github.com/devtrophies/trophies/internal/domain/trophy"
	"github.com/devtrophies/trophies/pkg/logger"
	"github.com/devtrophies/trophies/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRIC AGGREGATOR
// Собирает метрики профиля из первичного запроса и трёх вспомогательных.
// Первичный запрос обязателен, вспомогательные могут упасть: метрика
// тогда равна нулю и попадает в список деградировавших.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileProvider - источник данных профиля (GitHub или заглушка в тестах).
type ProfileProvider interface {
	FetchProfile(ctx context.Context, login string) (*trophy.Profile, error)
	FetchStarsTotal(ctx context.Context, login string) (int, error)
	FetchPullRequestCount(ctx context.Context, login string) (int, error)
	FetchIssueCount(ctx context.Context, login string) (int, error)
}

// AggregatorConfig - таймауты запросов.
type AggregatorConfig struct {
	// ProfileTimeout - таймаут первичного запроса (0 = только контекст вызывающего).
	ProfileTimeout time.Duration

	// AuxTimeout - таймаут каждого вспомогательного запроса.
	AuxTimeout time.Duration
}

// DefaultAggregatorConfig возвращает стандартные таймауты.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		ProfileTimeout: 10 * time.Second,
		AuxTimeout:     5 * time.Second,
	}
}

// AggregationResult - снимок профиля и производные метрики.
type AggregationResult struct {
	Snapshot trophy.ProfileSnapshot
	Metrics  trophy.MetricSet

	// Degraded - метрики, заменённые нулём из-за сбоя, в каноническом порядке.
	Degraded []trophy.MetricID
}

// IsDegraded сообщает, были ли частичные сбои.
func (r *AggregationResult) IsDegraded() bool {
	return len(r.Degraded) > 0
}

// MetricAggregator выполняет сбор метрик. Состояния между запросами не хранит.
type MetricAggregator struct {
	provider ProfileProvider
	config   AggregatorConfig
	clock    timeutil.Clock
	log      *logger.Logger
}

// NewMetricAggregator создаёт агрегатор.
func NewMetricAggregator(provider ProfileProvider, config AggregatorConfig, clock timeutil.Clock, log *logger.Logger) *MetricAggregator {
	if clock == nil {
		clock = timeutil.SystemClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MetricAggregator{
		provider: provider,
		config:   config,
		clock:    clock,
		log:      log.With(logger.Component("aggregator")),
	}
}

// auxFetch - один вспомогательный запрос.
type auxFetch struct {
	metric trophy.MetricID
	fetch  func(ctx context.Context, login string) (int, error)
	value  int
	failed bool
}

// Aggregate собирает метрики для логина.
// Ошибки: ErrUserNotFound, ErrProfileRateLimited, ErrUpstreamUnavailable.
func (a *MetricAggregator) Aggregate(ctx context.Context, login shared.Login) (*AggregationResult, error) {
	start := time.Now()
	name := login.String()

	// Первичный запрос: без него строить нечего
	profile, err := a.fetchProfile(ctx, name)
	if err != nil {
		return nil, err
	}

	// Вспомогательные запросы идут параллельно и никогда не возвращают ошибку,
	// поэтому errgroup дожидается всех и не отменяет соседей.
	fetches := []*auxFetch{
		{metric: trophy.MetricStars, fetch: a.provider.FetchStarsTotal},
		{metric: trophy.MetricIssues, fetch: a.provider.FetchIssueCount},
		{metric: trophy.MetricPRs, fetch: a.provider.FetchPullRequestCount},
	}

	var g errgroup.Group
	for _, f := range fetches {
		f := f
		g.Go(func() error {
			a.runAux(ctx, name, f)
			return nil
		})
	}
	_ = g.Wait()

	snapshot := trophy.ProfileSnapshot{
		Login:       profile.Login,
		PublicRepos: profile.PublicRepos,
		Followers:   profile.Followers,
		Following:   profile.Following,
		CreatedAt:   profile.CreatedAt,
	}

	failed := make(map[trophy.MetricID]bool, len(fetches))
	for _, f := range fetches {
		switch f.metric {
		case trophy.MetricStars:
			snapshot.StarsTotal = f.value
		case trophy.MetricIssues:
			snapshot.IssueCount = f.value
		case trophy.MetricPRs:
			snapshot.PullRequestCount = f.value
		}
		failed[f.metric] = f.failed
	}

	var degraded []trophy.MetricID
	for _, id := range trophy.MetricOrder {
		if failed[id] {
			degraded = append(degraded, id)
		}
	}

	result := &AggregationResult{
		Snapshot: snapshot,
		Metrics:  trophy.MetricsFromSnapshot(snapshot, a.clock.Now()),
		Degraded: degraded,
	}

	a.log.Debug("metrics aggregated",
		logger.Login(name),
		logger.Latency(time.Since(start)),
		logger.Int("degraded_count", len(degraded)),
	)

	return result, nil
}

func (a *MetricAggregator) fetchProfile(ctx context.Context, login string) (*trophy.Profile, error) {
	if a.config.ProfileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.ProfileTimeout)
		defer cancel()
	}

	profile, err := a.provider.FetchProfile(ctx, login)
	if err != nil {
		return nil, classifyProfileError(login, err)
	}
	if profile == nil {
		return nil, shared.WrapError("query", "Aggregate", shared.ErrServiceUnavailable, "empty profile for "+login, shared.ErrUpstreamUnavailable)
	}
	return profile, nil
}

// runAux выполняет один вспомогательный запрос с собственным таймаутом.
func (a *MetricAggregator) runAux(ctx context.Context, login string, f *auxFetch) {
	if a.config.AuxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.AuxTimeout)
		defer cancel()
	}

	value, err := f.fetch(ctx, login)
	if err != nil {
		f.value = 0
		f.failed = true
		a.log.Warn("auxiliary fetch failed, using zero",
			logger.Login(login),
			logger.Metric(f.metric.String()),
			logger.Err(err),
		)
		return
	}
	f.value = shared.NonNegative(value)
}

// classifyProfileError приводит ошибку провайдера к таксономии профиля.
// Неизвестные ошибки считаются недоступностью источника.
func classifyProfileError(login string, err error) error {
	switch {
	case errors.Is(err, shared.ErrUserNotFound),
		errors.Is(err, shared.ErrProfileRateLimited),
		errors.Is(err, shared.ErrUpstreamUnavailable):
		return err
	case shared.IsNotFound(err):
		return shared.WrapError("query", "Aggregate", shared.ErrNotFound, "user "+login+" not found", errors.Join(shared.ErrUserNotFound, err))
	case shared.IsRateLimited(err):
		return shared.WrapError("query", "Aggregate", shared.ErrRateLimited, "rate limited", errors.Join(shared.ErrProfileRateLimited, err))
	default:
		return shared.WrapError("query", "Aggregate", shared.ErrServiceUnavailable, "failed to fetch stats", errors.Join(shared.ErrUpstreamUnavailable, err))
	}
}
