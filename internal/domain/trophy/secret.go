package trophy

// ══════════════════════════════════════════════════════════════════════════════
// SECRET ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// SecretRule - скрытое достижение с булевым условием.
// Тир задаётся определением, а не лестницей.
type SecretRule struct {
	ID        string
	Title     string
	Icon      string
	Tier      Tier
	Condition func(MetricSet) bool
}

// DefaultSecretRules возвращает правила в порядке объявления.
// Порядок правил определяет порядок скрытых карточек.
func DefaultSecretRules() []SecretRule {
	return []SecretRule{
		{
			ID:    "time-traveler",
			Title: "Time Traveler",
			Icon:  "🕰️",
			Tier:  TierLegendary,
			Condition: func(m MetricSet) bool {
				return m.Value(MetricExperience) >= 10
			},
		},
		{
			ID:    "silent-builder",
			Title: "Silent Builder",
			Icon:  "🏗️",
			Tier:  TierGold,
			Condition: func(m MetricSet) bool {
				return m.Value(MetricRepos) >= 50 && m.Value(MetricFollowers) < 10
			},
		},
		{
			ID:    "shadow-contributor",
			Title: "Shadow Contributor",
			Icon:  "🥷",
			Tier:  TierGold,
			Condition: func(m MetricSet) bool {
				return m.Value(MetricPRs) >= 100 && m.Value(MetricFollowers) < 20
			},
		},
		{
			ID:    "hidden-gem",
			Title: "Hidden Gem",
			Icon:  "💎",
			Tier:  TierLegendary,
			Condition: func(m MetricSet) bool {
				return m.Value(MetricStars) >= 1000 && m.Value(MetricRepos) < 10
			},
		},
		{
			ID:    "bug-hunter",
			Title: "Bug Hunter",
			Icon:  "🔍",
			Tier:  TierSilver,
			Condition: func(m MetricSet) bool {
				return m.Value(MetricIssues) >= 100 && m.Value(MetricIssues) > m.Value(MetricPRs)
			},
		},
	}
}

// EvaluateSecrets проверяет все правила заново и возвращает
// разблокированные достижения в порядке объявления правил.
func EvaluateSecrets(rules []SecretRule, metrics MetricSet) []Achievement {
	var unlocked []Achievement
	for _, rule := range rules {
		if rule.Condition == nil || !rule.Condition(metrics) {
			continue
		}
		unlocked = append(unlocked, Achievement{
			ID:          rule.ID,
			Kind:        KindSecret,
			Title:       rule.Title,
			Icon:        rule.Icon,
			Category:    CategorySecret,
			Label:       "Secret",
			Tier:        rule.Tier,
			Rank:        rule.Tier.Rank(),
			ProgressPct: 100,
			Unlocked:    true,
		})
	}
	return unlocked
}
