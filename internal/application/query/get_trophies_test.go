package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/devtrophies/trophies/config"
	"github.com/devtrophies/trophies/internal/domain/layout"
	"github.com/devtrophies/trophies/internal/domain/shared"
	"github.com/devtrophies/trophies/internal/domain/trophy"
	"github.com/devtrophies/trophies/pkg/logger"
	"github.com/devtrophies/trophies/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MOCKS
// ══════════════════════════════════════════════════════════════════════════════

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) FetchProfile(ctx context.Context, login string) (*trophy.Profile, error) {
	args := m.Called(ctx, login)
	p, _ := args.Get(0).(*trophy.Profile)
	return p, args.Error(1)
}

func (m *mockProvider) FetchStarsTotal(ctx context.Context, login string) (int, error) {
	args := m.Called(ctx, login)
	return args.Int(0), args.Error(1)
}

func (m *mockProvider) FetchPullRequestCount(ctx context.Context, login string) (int, error) {
	args := m.Called(ctx, login)
	return args.Int(0), args.Error(1)
}

func (m *mockProvider) FetchIssueCount(ctx context.Context, login string) (int, error) {
	args := m.Called(ctx, login)
	return args.Int(0), args.Error(1)
}

var (
	testNow     = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	testCreated = time.Date(2011, 1, 25, 18, 44, 36, 0, time.UTC)
)

func octocat() *trophy.Profile {
	return &trophy.Profile{
		Login:       "octocat",
		PublicRepos: 8,
		Followers:   20,
		Following:   3,
		CreatedAt:   testCreated,
	}
}

func newAggregator(t *testing.T, p ProfileProvider) *MetricAggregator {
	t.Helper()
	cfg := AggregatorConfig{ProfileTimeout: time.Second, AuxTimeout: 200 * time.Millisecond}
	return NewMetricAggregator(p, cfg, timeutil.NewFixedClock(testNow), logger.FromZap(zaptest.NewLogger(t)))
}

func newHandler(t *testing.T, p ProfileProvider, features FeatureGate) *GetTrophiesHandler {
	t.Helper()
	return NewGetTrophiesHandler(
		newAggregator(t, p),
		trophy.NewBuilder(trophy.DefaultRules()),
		layout.NewGrid(layout.DefaultGridConfig()),
		features,
		timeutil.NewFixedClock(testNow),
		logger.FromZap(zaptest.NewLogger(t)),
	)
}

func login(t *testing.T, raw string) shared.Login {
	t.Helper()
	l, err := shared.NewLogin(raw)
	require.NoError(t, err)
	return l
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATOR
// ══════════════════════════════════════════════════════════════════════════════

func TestAggregate_AllSucceed(t *testing.T) {
	p := new(mockProvider)
	p.On("FetchProfile", mock.Anything, "octocat").Return(octocat(), nil)
	p.On("FetchStarsTotal", mock.Anything, "octocat").Return(42, nil)
	p.On("FetchPullRequestCount", mock.Anything, "octocat").Return(60, nil)
	p.On("FetchIssueCount", mock.Anything, "octocat").Return(20, nil)

	res, err := newAggregator(t, p).Aggregate(context.Background(), login(t, "octocat"))
	require.NoError(t, err)

	assert.False(t, res.IsDegraded())
	assert.Equal(t, 42, res.Metrics.Value(trophy.MetricStars))
	assert.Equal(t, 8, res.Metrics.Value(trophy.MetricRepos))
	assert.Equal(t, 20, res.Metrics.Value(trophy.MetricFollowers))
	assert.Equal(t, 20, res.Metrics.Value(trophy.MetricIssues))
	assert.Equal(t, 60, res.Metrics.Value(trophy.MetricPRs))
	assert.Equal(t, trophy.AccountAgeYears(testCreated, testNow), res.Metrics.Value(trophy.MetricExperience))
	assert.Equal(t, 14, res.Metrics.Value(trophy.MetricExperience))
	assert.Equal(t, 3, res.Snapshot.Following)
	p.AssertExpectations(t)
}

func TestAggregate_AuxFailureDegrades(t *testing.T) {
	p := new(mockProvider)
	p.On("FetchProfile", mock.Anything, "octocat").Return(octocat(), nil)
	p.On("FetchStarsTotal", mock.Anything, "octocat").Return(0, errors.New("page 3: connection reset"))
	p.On("FetchPullRequestCount", mock.Anything, "octocat").Return(0, shared.ErrProfileRateLimited)
	p.On("FetchIssueCount", mock.Anything, "octocat").Return(7, nil)

	res, err := newAggregator(t, p).Aggregate(context.Background(), login(t, "octocat"))
	require.NoError(t, err)

	assert.Equal(t, []trophy.MetricID{trophy.MetricStars, trophy.MetricPRs}, res.Degraded)
	assert.Equal(t, 0, res.Metrics.Value(trophy.MetricStars))
	assert.Equal(t, 0, res.Metrics.Value(trophy.MetricPRs))
	assert.Equal(t, 7, res.Metrics.Value(trophy.MetricIssues))
}

func TestAggregate_TagsComponentOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	p := new(mockProvider)
	p.On("FetchProfile", mock.Anything, "octocat").Return(octocat(), nil)
	p.On("FetchStarsTotal", mock.Anything, "octocat").Return(0, errors.New("connection reset"))
	p.On("FetchPullRequestCount", mock.Anything, "octocat").Return(1, nil)
	p.On("FetchIssueCount", mock.Anything, "octocat").Return(1, nil)

	agg := NewMetricAggregator(p, DefaultAggregatorConfig(),
		timeutil.NewFixedClock(testNow), logger.FromZap(zap.New(core)))

	_, err := agg.Aggregate(context.Background(), login(t, "octocat"))
	require.NoError(t, err)
	require.NotZero(t, logs.Len())

	for _, entry := range logs.All() {
		var components []string
		for _, f := range entry.Context {
			if f.Key == "component" {
				components = append(components, f.String)
			}
		}
		assert.Equal(t, []string{"aggregator"}, components, entry.Message)
	}
}

func TestAggregate_AuxTimeoutDegrades(t *testing.T) {
	p := new(mockProvider)
	p.On("FetchProfile", mock.Anything, "octocat").Return(octocat(), nil)
	p.On("FetchStarsTotal", mock.Anything, "octocat").Return(5, nil)
	p.On("FetchPullRequestCount", mock.Anything, "octocat").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(0, context.DeadlineExceeded)
	p.On("FetchIssueCount", mock.Anything, "octocat").Return(1, nil)

	agg := NewMetricAggregator(p, AggregatorConfig{AuxTimeout: 20 * time.Millisecond},
		timeutil.NewFixedClock(testNow), logger.Nop())

	start := time.Now()
	res, err := agg.Aggregate(context.Background(), login(t, "octocat"))
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []trophy.MetricID{trophy.MetricPRs}, res.Degraded)
	assert.Equal(t, 5, res.Metrics.Value(trophy.MetricStars))
}

func TestAggregate_NegativeCountsClamped(t *testing.T) {
	p := new(mockProvider)
	profile := octocat()
	profile.Followers = -4
	p.On("FetchProfile", mock.Anything, "octocat").Return(profile, nil)
	p.On("FetchStarsTotal", mock.Anything, "octocat").Return(-1, nil)
	p.On("FetchPullRequestCount", mock.Anything, "octocat").Return(3, nil)
	p.On("FetchIssueCount", mock.Anything, "octocat").Return(3, nil)

	res, err := newAggregator(t, p).Aggregate(context.Background(), login(t, "octocat"))
	require.NoError(t, err)
	assert.Zero(t, res.Metrics.Value(trophy.MetricStars))
	assert.Zero(t, res.Metrics.Value(trophy.MetricFollowers))
	assert.Empty(t, res.Degraded)
}

func TestAggregate_PrimaryErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found passes through", shared.ErrUserNotFound, shared.ErrUserNotFound},
		{"rate limited passes through", shared.ErrProfileRateLimited, shared.ErrProfileRateLimited},
		{"generic not found", shared.NewDomainError("github", "Get", shared.ErrNotFound, "404"), shared.ErrUserNotFound},
		{"unknown error", errors.New("dial tcp: refused"), shared.ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(mockProvider)
			p.On("FetchProfile", mock.Anything, "ghost").Return(nil, tt.err)

			res, err := newAggregator(t, p).Aggregate(context.Background(), login(t, "ghost"))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)

			// Без профиля вспомогательные запросы не выполняются
			p.AssertNotCalled(t, "FetchStarsTotal", mock.Anything, mock.Anything)
			p.AssertNotCalled(t, "FetchPullRequestCount", mock.Anything, mock.Anything)
			p.AssertNotCalled(t, "FetchIssueCount", mock.Anything, mock.Anything)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

func TestGetTrophies_FailedPRFetch(t *testing.T) {
	p := new(mockProvider)
	p.On("FetchProfile", mock.Anything, "octocat").Return(octocat(), nil)
	p.On("FetchStarsTotal", mock.Anything, "octocat").Return(10, nil)
	p.On("FetchPullRequestCount", mock.Anything, "octocat").Return(0, errors.New("search unavailable"))
	p.On("FetchIssueCount", mock.Anything, "octocat").Return(4, nil)

	res, err := newHandler(t, p, nil).Handle(context.Background(), NewGetTrophiesQuery("octocat"))
	require.NoError(t, err)

	metricCards := 0
	for _, a := range res.Achievements {
		if a.Kind != trophy.KindMetric {
			continue
		}
		metricCards++
		if a.ID == string(trophy.MetricPRs) {
			assert.Equal(t, 0, a.Value)
			assert.Equal(t, trophy.TierLocked, a.Tier)
			assert.False(t, a.Unlocked)
		}
	}
	assert.Equal(t, 6, metricCards)
	assert.Equal(t, []string{"prs"}, res.Degraded)
	assert.True(t, res.IsPartial())
}

func TestGetTrophies_DefaultOptions(t *testing.T) {
	p := new(mockProvider)
	p.On("FetchProfile", mock.Anything, "octocat").Return(octocat(), nil)
	p.On("FetchStarsTotal", mock.Anything, "octocat").Return(10, nil)
	p.On("FetchPullRequestCount", mock.Anything, "octocat").Return(5, nil)
	p.On("FetchIssueCount", mock.Anything, "octocat").Return(4, nil)

	res, err := newHandler(t, p, nil).Handle(context.Background(), NewGetTrophiesQuery("Octocat"))
	require.NoError(t, err)

	// 6 метрик + time-traveler; незавершённые цели скрыты
	require.Len(t, res.Achievements, 7)
	assert.Equal(t, "time-traveler", res.Achievements[6].ID)
	assert.Equal(t, trophy.KindSecret, res.Achievements[6].Kind)

	assert.Equal(t, 3, res.Layout.Columns)
	assert.Equal(t, 3, res.Layout.Rows)
	require.Len(t, res.Layout.Cells, 7)
	assert.Equal(t, 0, res.Layout.Cells[6].Column)
	assert.Equal(t, 2, res.Layout.Cells[6].Row)

	assert.Equal(t, DefaultTheme, res.Theme)
	assert.True(t, res.Animation)
	assert.Empty(t, res.Degraded)
	assert.Equal(t, testNow, res.GeneratedAt)

	// Всего 6 метрик + 4 цели + 1 секрет, независимо от фильтра
	assert.Equal(t, 11, res.TotalCount)

	// XP: 10*5 + 8*15 + 20*10 + 4*5 + 5*10 + 14*50 = 1140
	assert.Equal(t, 1140, res.Level.TotalXP)
	assert.Equal(t, 3, res.Level.Level)
	assert.Equal(t, "Novice", res.Level.Title)
	assert.Equal(t, "B", res.Profile.Rank)
}

func TestGetTrophies_ShowLockedHideSecrets(t *testing.T) {
	p := new(mockProvider)
	p.On("FetchProfile", mock.Anything, "octocat").Return(octocat(), nil)
	p.On("FetchStarsTotal", mock.Anything, "octocat").Return(10, nil)
	p.On("FetchPullRequestCount", mock.Anything, "octocat").Return(5, nil)
	p.On("FetchIssueCount", mock.Anything, "octocat").Return(4, nil)

	q := NewGetTrophiesQuery("octocat")
	q.ShowLocked = true
	q.ShowHidden = false
	q.Columns = 10
	q.Animation = false

	res, err := newHandler(t, p, nil).Handle(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, res.Achievements, 10)
	for _, a := range res.Achievements[6:] {
		assert.Equal(t, trophy.KindGoal, a.Kind)
		assert.False(t, a.Unlocked)
		assert.NotNil(t, a.NextValue)
	}
	assert.Equal(t, 6, res.Layout.Columns)
	assert.False(t, res.Animation)
	for _, c := range res.Layout.Cells {
		assert.False(t, c.Style.Glow)
	}
}

func TestGetTrophies_FeatureFlags(t *testing.T) {
	p := new(mockProvider)
	p.On("FetchProfile", mock.Anything, "octocat").Return(octocat(), nil)
	p.On("FetchStarsTotal", mock.Anything, "octocat").Return(10, nil)
	p.On("FetchPullRequestCount", mock.Anything, "octocat").Return(5, nil)
	p.On("FetchIssueCount", mock.Anything, "octocat").Return(4, nil)

	flags := config.LoadFeatureFlags()
	require.NoError(t, flags.DisableFeature(config.FeatureSecretAchievements))
	require.NoError(t, flags.DisableFeature(config.FeatureAnimation))

	res, err := newHandler(t, p, flags).Handle(context.Background(), NewGetTrophiesQuery("octocat"))
	require.NoError(t, err)

	assert.Len(t, res.Achievements, 6)
	assert.False(t, res.Animation)
	assert.Equal(t, 10, res.TotalCount)
}

func TestGetTrophies_Validation(t *testing.T) {
	tests := []struct {
		name  string
		query GetTrophiesQuery
	}{
		{"empty username", NewGetTrophiesQuery("")},
		{"bad username", NewGetTrophiesQuery("-bad-")},
		{"negative columns", func() GetTrophiesQuery { q := NewGetTrophiesQuery("octocat"); q.Columns = -1; return q }()},
		{"bad theme", func() GetTrophiesQuery { q := NewGetTrophiesQuery("octocat"); q.Theme = "<script>"; return q }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(mockProvider)
			_, err := newHandler(t, p, nil).Handle(context.Background(), tt.query)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
			p.AssertNotCalled(t, "FetchProfile", mock.Anything, mock.Anything)
		})
	}
}

func TestGetTrophies_PropagatesPrimaryError(t *testing.T) {
	p := new(mockProvider)
	p.On("FetchProfile", mock.Anything, "ghost").Return(nil, shared.ErrUserNotFound)

	_, err := newHandler(t, p, nil).Handle(context.Background(), NewGetTrophiesQuery("ghost"))
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
	assert.True(t, shared.IsNotFound(err))
}
