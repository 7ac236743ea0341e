package trophy

// ══════════════════════════════════════════════════════════════════════════════
// MODEL BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// Builder собирает AchievementSet из уже агрегированных метрик.
// Чистая функция: без I/O, без ошибок, без состояния между вызовами.
type Builder struct {
	rules Rules
}

// NewBuilder создаёт сборщик. Правила должны быть проверены через Rules.Validate.
func NewBuilder(rules Rules) *Builder {
	return &Builder{rules: rules}
}

// Rules возвращает правила, с которыми работает сборщик.
func (b *Builder) Rules() Rules {
	return b.rules
}

// Build строит набор: метрики, затем цели, затем секреты.
func (b *Builder) Build(metrics MetricSet) AchievementSet {
	set := AchievementSet{
		Visible: make([]Achievement, 0, len(MetricOrder)),
	}

	for _, id := range MetricOrder {
		set.Visible = append(set.Visible, b.metricAchievement(id, metrics.Value(id)))
	}

	if len(b.rules.Goals) > 0 {
		set.Locked = make([]Achievement, 0, len(b.rules.Goals))
		for _, g := range b.rules.Goals {
			set.Locked = append(set.Locked, g.evaluate(metrics))
		}
	}

	set.Hidden = EvaluateSecrets(b.rules.Secrets, metrics)
	return set
}

// Level считает XP и уровень для набора метрик.
func (b *Builder) Level(metrics MetricSet) (int, LevelState) {
	total := TotalXP(metrics.Metrics(b.rules.Weights))
	return total, b.rules.Level.CalculateLevel(total)
}

func (b *Builder) metricAchievement(id MetricID, value int) Achievement {
	info := metricCatalog[id]
	result := Classify(value, b.rules.Ladders[id])

	a := Achievement{
		ID:          string(id),
		Kind:        KindMetric,
		Icon:        info.Icon,
		Category:    CategoryMetric,
		Label:       info.Label,
		Value:       value,
		Unit:        DefaultUnit,
		Tier:        result.Tier,
		Rank:        result.Rank(),
		ProgressPct: result.ProgressPct,
		Unlocked:    result.TierIndex >= 0,
	}

	if a.Unlocked {
		a.Title = info.Titles[result.TierIndex]
	} else {
		a.Title = "Locked"
	}

	// У LEGENDARY следующего порога нет.
	if !result.IsMax() {
		next := result.NextThreshold
		a.NextValue = &next
	}
	return a
}
