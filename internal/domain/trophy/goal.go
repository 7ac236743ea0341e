package trophy

import "github.com/devtrophies/trophies/internal/domain/shared"

// Goal - цель с единственным порогом, без промежуточных ступеней.
type Goal struct {
	ID        string
	Title     string
	Icon      string
	Metric    MetricID
	Threshold int
	Tier      Tier
}

// Validate проверяет определение цели.
func (g Goal) Validate() error {
	switch {
	case g.ID == "":
		return shared.NewDomainError("trophy", "Validate", shared.ErrEmptyValue, "goal id is required")
	case !g.Metric.IsValid():
		return shared.WrapError("trophy", "Validate", shared.ErrInvalidInput, "goal "+g.ID, shared.ErrUnknownMetric)
	case g.Threshold <= 0:
		return shared.NewDomainError("trophy", "Validate", shared.ErrValueOutOfRange, "goal "+g.ID+" threshold must be positive")
	case g.Tier == TierLocked || !g.Tier.IsValid():
		return shared.NewDomainError("trophy", "Validate", shared.ErrInvalidInput, "goal "+g.ID+" tier must be BRONZE..LEGENDARY")
	}
	return nil
}

// DefaultGoals возвращает стандартный набор целей.
func DefaultGoals() []Goal {
	return []Goal{
		{ID: "star-collector", Title: "Star Collector", Icon: "🌟", Metric: MetricStars, Threshold: 1000, Tier: TierLegendary},
		{ID: "pull-request-machine", Title: "Pull Request Machine", Icon: "⚙️", Metric: MetricPRs, Threshold: 500, Tier: TierLegendary},
		{ID: "repo-centurion", Title: "Repo Centurion", Icon: "🏛️", Metric: MetricRepos, Threshold: 100, Tier: TierGold},
		{ID: "crowd-magnet", Title: "Crowd Magnet", Icon: "🧲", Metric: MetricFollowers, Threshold: 1000, Tier: TierLegendary},
	}
}

// evaluate строит карточку цели.
func (g Goal) evaluate(metrics MetricSet) Achievement {
	value := metrics.Value(g.Metric)
	a := Achievement{
		ID:       g.ID,
		Kind:     KindGoal,
		Title:    g.Title,
		Icon:     g.Icon,
		Category: CategoryGoal,
		Label:    metricCatalog[g.Metric].Label,
		Value:    value,
		Unit:     DefaultUnit,
	}

	if value >= g.Threshold {
		a.Tier = g.Tier
		a.Unlocked = true
		a.ProgressPct = 100
	} else {
		a.Tier = TierLocked
		a.ProgressPct = percent(value, g.Threshold)
		next := g.Threshold
		a.NextValue = &next
	}
	a.Rank = a.Tier.Rank()
	return a
}
