package trophy

import (
	"fmt"

	"github.com/devtrophies/trophies/internal/domain/shared"
)

// Rules - все таблицы оценки, внедряемые в Builder извне.
// Глобальных констант нет: каждое развертывание может подстроить пороги.
type Rules struct {
	Ladders map[MetricID]Ladder
	Weights Weights
	Level   LevelLadder
	Goals   []Goal
	Secrets []SecretRule
}

// DefaultLadders возвращает стандартные пороги тиров.
func DefaultLadders() map[MetricID]Ladder {
	return map[MetricID]Ladder{
		MetricStars:      {1, 20, 100, 500},
		MetricFollowers:  {1, 15, 60, 250},
		MetricRepos:      {1, 10, 30, 100},
		MetricPRs:        {1, 10, 50, 200},
		MetricIssues:     {1, 10, 50, 200},
		MetricExperience: {0, 1, 3, 5},
	}
}

// DefaultRules возвращает полный стандартный набор правил.
func DefaultRules() Rules {
	return Rules{
		Ladders: DefaultLadders(),
		Weights: DefaultWeights(),
		Level:   DefaultLevelLadder(),
		Goals:   DefaultGoals(),
		Secrets: DefaultSecretRules(),
	}
}

// Validate проверяет согласованность правил.
func (r Rules) Validate() error {
	for _, id := range MetricOrder {
		ladder, ok := r.Ladders[id]
		if !ok {
			return shared.WrapError("trophy", "Validate", shared.ErrValueOutOfRange, "missing ladder for "+string(id), shared.ErrInvalidLadder)
		}
		if err := ladder.Validate(); err != nil {
			return fmt.Errorf("ladder %s: %w", id, err)
		}
	}
	for id := range r.Ladders {
		if !id.IsValid() {
			return shared.WrapError("trophy", "Validate", shared.ErrInvalidInput, "ladder for "+string(id), shared.ErrUnknownMetric)
		}
	}
	if err := r.Weights.Validate(); err != nil {
		return err
	}
	if err := r.Level.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(r.Goals))
	for _, g := range r.Goals {
		if err := g.Validate(); err != nil {
			return err
		}
		if seen[g.ID] {
			return shared.NewDomainError("trophy", "Validate", shared.ErrInvalidInput, "duplicate goal "+g.ID)
		}
		seen[g.ID] = true
	}
	for _, s := range r.Secrets {
		if s.Condition == nil {
			return shared.NewDomainError("trophy", "Validate", shared.ErrInvalidInput, "secret "+s.ID+" has no condition")
		}
	}
	return nil
}
