package trophy

import (
	"math"

	"github.com/devtrophies/trophies/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP & LEVELS
// ══════════════════════════════════════════════════════════════════════════════

// Weights - вес каждой метрики при подсчёте XP.
type Weights map[MetricID]int

// DefaultWeights возвращает стандартные веса.
func DefaultWeights() Weights {
	return Weights{
		MetricStars:      5,
		MetricFollowers:  10,
		MetricRepos:      15,
		MetricPRs:        10,
		MetricIssues:     5,
		MetricExperience: 50,
	}
}

// Validate проверяет, что для каждой метрики задан положительный вес.
func (w Weights) Validate() error {
	for id, weight := range w {
		if !id.IsValid() {
			return shared.WrapError("trophy", "Validate", shared.ErrInvalidInput, "weight for "+string(id), shared.ErrUnknownMetric)
		}
		if weight <= 0 {
			return shared.WrapError("trophy", "Validate", shared.ErrValueOutOfRange, "weight for "+string(id), shared.ErrInvalidWeight)
		}
	}
	for _, id := range MetricOrder {
		if _, ok := w[id]; !ok {
			return shared.WrapError("trophy", "Validate", shared.ErrValueOutOfRange, "missing weight for "+string(id), shared.ErrInvalidWeight)
		}
	}
	return nil
}

// TotalXP - Σ rawValue*weight по всем метрикам, включая стаж.
func TotalXP(metrics []Metric) int {
	total := 0
	for _, m := range metrics {
		total += m.XP()
	}
	return total
}

// LevelLadder описывает геометрически растущую лестницу уровней.
type LevelLadder struct {
	BaseXP int     `json:"base_xp"`
	Growth float64 `json:"growth"`
}

// DefaultLevelLadder: база 250 XP, рост ×1.5.
func DefaultLevelLadder() LevelLadder {
	return LevelLadder{BaseXP: 250, Growth: 1.5}
}

// Validate проверяет, что цикл уровней гарантированно завершится.
func (l LevelLadder) Validate() error {
	if l.BaseXP <= 0 || l.Growth <= 1 || math.IsInf(l.Growth, 0) || math.IsNaN(l.Growth) {
		return shared.ErrInvalidLevelLadder
	}
	return nil
}

// LevelState - уровень и прогресс внутри уровня.
type LevelState struct {
	Level       int     `json:"level"`
	CurrentXP   int     `json:"current_xp"`
	NextLevelXP int     `json:"next_level_xp"`
	ProgressPct float64 `json:"progress_pct"`
}

// CalculateLevel спускается по лестнице, вычитая порог каждого уровня.
//
// Порог округляется вниз на каждом шаге, поэтому замкнутая формула
// дала бы другие числа: 250 → 375 → 562 → 843 → 1264 → 1896 → 2844.
// Если округлённый порог не вырос, он увеличивается на единицу:
// база 1 с ростом 1.5 даёт 1 → 2 → 3 → 4 → 6.
func (l LevelLadder) CalculateLevel(totalXP int) LevelState {
	if l.Validate() != nil {
		l = DefaultLevelLadder()
	}

	remaining := shared.NonNegative(totalXP)
	level := 1
	threshold := l.BaseXP

	for remaining >= threshold {
		remaining -= threshold
		level++
		next := int(math.Floor(float64(threshold) * l.Growth))
		if next <= threshold {
			// Малые базы с ростом, близким к 1, не должны зацикливаться.
			next = threshold + 1
		}
		threshold = next
	}

	return LevelState{
		Level:       level,
		CurrentXP:   remaining,
		NextLevelXP: threshold,
		ProgressPct: percent(remaining, threshold),
	}
}

// LevelTitle возвращает звание для уровня.
func LevelTitle(level int) string {
	switch {
	case level >= 30:
		return "Grandmaster"
	case level >= 20:
		return "Master"
	case level >= 15:
		return "Expert"
	case level >= 10:
		return "Adept"
	case level >= 5:
		return "Apprentice"
	default:
		return "Novice"
	}
}
