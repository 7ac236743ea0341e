package trophy

import (
	"strings"

	"github.com/devtrophies/trophies/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TIERS
// ══════════════════════════════════════════════════════════════════════════════

// Tier - дискретный ранг достижения.
type Tier string

const (
	TierLocked    Tier = "LOCKED"
	TierBronze    Tier = "BRONZE"
	TierSilver    Tier = "SILVER"
	TierGold      Tier = "GOLD"
	TierLegendary Tier = "LEGENDARY"
)

// tierLabels индексируются номером ступени лестницы.
var tierLabels = [LadderSize]Tier{TierBronze, TierSilver, TierGold, TierLegendary}

// rankLabels индексируются как tierIndex+1, LOCKED получает "C".
var rankLabels = [LadderSize + 1]string{"C", "B", "A", "S", "SSS"}

// Index возвращает позицию тира: -1 для LOCKED, 0..3 для остальных.
func (t Tier) Index() int {
	for i, label := range tierLabels {
		if label == t {
			return i
		}
	}
	return -1
}

// IsValid проверяет, что тир известен.
func (t Tier) IsValid() bool {
	return t == TierLocked || t.Index() >= 0
}

// ParseTier разбирает название тира без учёта регистра.
func ParseTier(raw string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return "", shared.NewDomainError("trophy", "ParseTier", shared.ErrInvalidFormat, "unknown tier "+raw)
	}
	return t, nil
}

// Rank возвращает буквенный ранг тира.
func (t Tier) Rank() string {
	return rankLabels[t.Index()+1]
}

// LadderSize - количество ступеней в лестнице порогов.
const LadderSize = 4

// Ladder - возрастающие пороги [bronze, silver, gold, legendary].
type Ladder [LadderSize]int

// Validate проверяет, что пороги неотрицательны и строго возрастают.
func (l Ladder) Validate() error {
	if l[0] < 0 {
		return shared.ErrInvalidLadder
	}
	for i := 1; i < LadderSize; i++ {
		if l[i] <= l[i-1] {
			return shared.ErrInvalidLadder
		}
	}
	return nil
}

// LadderFromSlice строит лестницу из произвольного среза (например, из YAML).
func LadderFromSlice(values []int) (Ladder, error) {
	var l Ladder
	if len(values) != LadderSize {
		return l, shared.ErrInvalidLadder
	}
	copy(l[:], values)
	return l, l.Validate()
}

// TierResult - результат классификации значения по лестнице.
type TierResult struct {
	Tier          Tier
	TierIndex     int
	ProgressPct   float64
	NextThreshold int
}

// IsMax сообщает, что достигнута последняя ступень.
func (r TierResult) IsMax() bool {
	return r.TierIndex == LadderSize-1
}

// Rank возвращает буквенный ранг результата.
func (r TierResult) Rank() string {
	return rankLabels[r.TierIndex+1]
}

// Classify находит наивысшую ступень i, для которой value >= ladder[i].
//
// LEGENDARY всегда даёт ровно 100%: value/ladder[last] может превышать 100,
// и это отдельная ветка, а не обрезка после вычисления.
func Classify(value int, ladder Ladder) TierResult {
	idx := -1
	for i, threshold := range ladder {
		if value >= threshold {
			idx = i
		}
	}

	if idx == LadderSize-1 {
		return TierResult{
			Tier:          TierLegendary,
			TierIndex:     idx,
			ProgressPct:   100,
			NextThreshold: ladder[LadderSize-1],
		}
	}

	result := TierResult{
		Tier:          TierLocked,
		TierIndex:     idx,
		NextThreshold: ladder[idx+1],
	}
	if idx >= 0 {
		result.Tier = tierLabels[idx]
	}
	result.ProgressPct = percent(value, result.NextThreshold)
	return result
}

// percent возвращает min(100, value/target*100) в пределах [0, 100].
func percent(value, target int) float64 {
	if target <= 0 || value <= 0 {
		return 0
	}
	p := float64(value) / float64(target) * 100
	if p > 100 {
		return 100
	}
	return p
}
