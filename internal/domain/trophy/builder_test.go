package trophy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioMetrics() MetricSet {
	return NewMetricSet(map[MetricID]int{
		MetricStars:      600,
		MetricFollowers:  120,
		MetricRepos:      40,
		MetricPRs:        60,
		MetricIssues:     20,
		MetricExperience: 3,
	})
}

func scenarioRules() Rules {
	rules := DefaultRules()
	rules.Ladders[MetricStars] = Ladder{5, 25, 100, 500}
	return rules
}

func TestBuilder_Scenario(t *testing.T) {
	rules := scenarioRules()
	require.NoError(t, rules.Validate())

	b := NewBuilder(rules)
	set := b.Build(scenarioMetrics())

	require.Len(t, set.Visible, len(MetricOrder))
	for i, id := range MetricOrder {
		assert.Equal(t, string(id), set.Visible[i].ID)
		assert.Equal(t, KindMetric, set.Visible[i].Kind)
	}

	stars := set.Visible[0]
	assert.Equal(t, TierLegendary, stars.Tier)
	assert.Equal(t, 100.0, stars.ProgressPct)
	assert.Equal(t, "God Stargazer", stars.Title)
	assert.Equal(t, "SSS", stars.Rank)
	assert.Nil(t, stars.NextValue)

	issues := set.Visible[3]
	assert.Equal(t, TierSilver, issues.Tier)
	assert.Equal(t, "Issuer", issues.Title)
	require.NotNil(t, issues.NextValue)
	assert.Equal(t, 50, *issues.NextValue)
	assert.InDelta(t, 40.0, issues.ProgressPct, 1e-9)

	years := set.Visible[5]
	assert.Equal(t, TierGold, years.Tier)
	assert.Equal(t, "Veteran", years.Title)

	assert.Len(t, set.Locked, len(DefaultGoals()))
	for _, g := range set.Locked {
		assert.False(t, g.Unlocked)
		assert.Equal(t, TierLocked, g.Tier)
	}
	assert.Empty(t, set.Hidden)

	total, level := b.Level(scenarioMetrics())
	assert.Equal(t, 5650, total)
	assert.Equal(t, LevelState{Level: 7, CurrentXP: 460, NextLevelXP: 2844, ProgressPct: level.ProgressPct}, level)
}

func TestBuilder_Deterministic(t *testing.T) {
	b := NewBuilder(DefaultRules())
	metrics := NewMetricSet(map[MetricID]int{
		MetricStars:      1500,
		MetricRepos:      60,
		MetricFollowers:  5,
		MetricPRs:        150,
		MetricIssues:     300,
		MetricExperience: 12,
	})

	first := b.Build(metrics)
	second := b.Build(metrics)
	assert.Equal(t, first, second)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	c, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(c))
}

func TestBuilder_LockedMetricsStayVisible(t *testing.T) {
	set := NewBuilder(DefaultRules()).Build(NewMetricSet(nil))

	require.Len(t, set.Visible, 6)
	for _, a := range set.Visible[:5] {
		assert.Equal(t, TierLocked, a.Tier)
		assert.Equal(t, "Locked", a.Title)
		assert.False(t, a.Unlocked)
	}
	// Стаж 0 лет уже BRONZE: нижняя ступень равна нулю.
	assert.Equal(t, TierBronze, set.Visible[5].Tier)
}

func TestBuilder_SecretsInDeclarationOrder(t *testing.T) {
	metrics := NewMetricSet(map[MetricID]int{
		MetricStars:      1500,
		MetricRepos:      60,
		MetricFollowers:  5,
		MetricPRs:        150,
		MetricIssues:     300,
		MetricExperience: 12,
	})
	set := NewBuilder(DefaultRules()).Build(metrics)

	ids := make([]string, 0, len(set.Hidden))
	for _, a := range set.Hidden {
		ids = append(ids, a.ID)
		assert.True(t, a.Unlocked)
		assert.Equal(t, KindSecret, a.Kind)
		assert.False(t, a.HasProgress())
	}
	// hidden-gem требует repos < 10, поэтому его нет.
	assert.Equal(t, []string{"time-traveler", "silent-builder", "shadow-contributor", "bug-hunter"}, ids)
	assert.Equal(t, TierLegendary, set.Hidden[0].Tier)
	assert.Equal(t, TierSilver, set.Hidden[3].Tier)
}

func TestBuilder_GoalUnlock(t *testing.T) {
	rules := DefaultRules()
	rules.Goals = []Goal{{ID: "hundred", Title: "Hundred", Icon: "💯", Metric: MetricPRs, Threshold: 100, Tier: TierGold}}
	b := NewBuilder(rules)

	locked := b.Build(NewMetricSet(map[MetricID]int{MetricPRs: 25})).Locked[0]
	assert.False(t, locked.Unlocked)
	assert.Equal(t, TierLocked, locked.Tier)
	assert.InDelta(t, 25.0, locked.ProgressPct, 1e-9)
	require.NotNil(t, locked.NextValue)
	assert.Equal(t, 100, *locked.NextValue)

	unlocked := b.Build(NewMetricSet(map[MetricID]int{MetricPRs: 250})).Locked[0]
	assert.True(t, unlocked.Unlocked)
	assert.Equal(t, TierGold, unlocked.Tier)
	assert.Equal(t, 100.0, unlocked.ProgressPct)
	assert.Nil(t, unlocked.NextValue)
}

func TestAchievementSet_Filter(t *testing.T) {
	set := AchievementSet{
		Visible: []Achievement{{ID: "stars"}, {ID: "repos"}},
		Locked:  []Achievement{{ID: "g1"}, {ID: "g2", Unlocked: true}, {ID: "g3"}},
		Hidden:  []Achievement{{ID: "s1", Unlocked: true}},
	}

	ids := func(s AchievementSet) []string {
		var out []string
		for _, a := range s.All() {
			out = append(out, a.ID)
		}
		return out
	}

	assert.Equal(t, []string{"stars", "repos", "g1", "g2", "g3", "s1"}, ids(set.Filter(true, true)))
	assert.Equal(t, []string{"stars", "repos", "g2", "s1"}, ids(set.Filter(false, true)))
	assert.Equal(t, []string{"stars", "repos", "g2"}, ids(set.Filter(false, false)))
	assert.Equal(t, 2, set.UnlockedCount())
}

func TestMetricsFromSnapshot(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	snap := ProfileSnapshot{
		Login:            "octocat",
		PublicRepos:      8,
		Followers:        -3,
		CreatedAt:        now.AddDate(0, 0, -(365*3 + 10)),
		StarsTotal:       42,
		PullRequestCount: 7,
		IssueCount:       2,
	}

	m := MetricsFromSnapshot(snap, now)
	assert.Equal(t, 42, m.Value(MetricStars))
	assert.Equal(t, 8, m.Value(MetricRepos))
	assert.Equal(t, 0, m.Value(MetricFollowers))
	assert.Equal(t, 7, m.Value(MetricPRs))
	assert.Equal(t, 2, m.Value(MetricIssues))
	assert.Equal(t, 3, m.Value(MetricExperience))
}

func TestAccountAgeYears(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, AccountAgeYears(time.Time{}, now))
	assert.Equal(t, 0, AccountAgeYears(now.Add(time.Hour), now))
	assert.Equal(t, 0, AccountAgeYears(now.AddDate(0, 0, -364), now))
	assert.Equal(t, 1, AccountAgeYears(now.AddDate(0, 0, -365), now))
	assert.Equal(t, 10, AccountAgeYears(now.AddDate(0, 0, -3650), now))
}

func TestAchievement_DisplayValue(t *testing.T) {
	assert.Equal(t, "999", Achievement{Value: 999}.DisplayValue())
	assert.Equal(t, "1k", Achievement{Value: 1000}.DisplayValue())
	assert.Equal(t, "1.2k", Achievement{Value: 1234}.DisplayValue())
}

func TestProfileRank(t *testing.T) {
	rank := func(followers, repos int) string {
		return ProfileRank(NewMetricSet(map[MetricID]int{MetricFollowers: followers, MetricRepos: repos}))
	}
	assert.Equal(t, "C", rank(5, 10))
	assert.Equal(t, "B", rank(10, 1))
	assert.Equal(t, "A", rank(40, 30))
	assert.Equal(t, "S+", rank(500, 1))
}

func TestRules_Validate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	r := DefaultRules()
	r.Ladders[MetricPRs] = Ladder{10, 5, 20, 30}
	assert.Error(t, r.Validate())

	r = DefaultRules()
	delete(r.Ladders, MetricIssues)
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.Goals = append(r.Goals, r.Goals[0])
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.Level = LevelLadder{BaseXP: 100, Growth: 1}
	assert.Error(t, r.Validate())
}
