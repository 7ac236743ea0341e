package trophy

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// Kind различает варианты достижений.
type Kind string

const (
	KindMetric Kind = "metric"
	KindGoal   Kind = "goal"
	KindSecret Kind = "secret"
)

// Category группирует карточки для презентационного слоя.
type Category string

const (
	CategoryMetric Category = "metric"
	CategoryGoal   Category = "goal"
	CategorySecret Category = "secret"
)

// DefaultUnit - единица измерения значений карточек.
const DefaultUnit = "pt"

// Achievement - отображаемая единица. Создаётся один раз на запрос
// и дальше только читается.
type Achievement struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Icon        string   `json:"icon"`
	Category    Category `json:"category"`
	Label       string   `json:"label"`
	Value       int      `json:"value"`
	Unit        string   `json:"unit,omitempty"`
	Tier        Tier     `json:"tier"`
	Rank        string   `json:"rank"`
	ProgressPct float64  `json:"progress_pct"`
	NextValue   *int     `json:"next_value,omitempty"`
	Unlocked    bool     `json:"unlocked"`
}

// HasProgress сообщает, нужна ли карточке полоса прогресса.
func (a Achievement) HasProgress() bool {
	return a.Kind != KindSecret
}

// DisplayValue форматирует значение компактно: 1200 → "1.2k".
func (a Achievement) DisplayValue() string {
	if a.Value < 1000 {
		return strconv.Itoa(a.Value)
	}
	s := humanize.SIWithDigits(float64(a.Value), 1, "")
	return strings.ReplaceAll(s, " ", "")
}

// AchievementSet - упорядоченный набор: visible ++ locked ++ hidden.
type AchievementSet struct {
	Visible []Achievement `json:"visible"`
	Locked  []Achievement `json:"locked"`
	Hidden  []Achievement `json:"hidden"`
}

// All возвращает плоский список в фиксированном порядке.
func (s AchievementSet) All() []Achievement {
	out := make([]Achievement, 0, s.Len())
	out = append(out, s.Visible...)
	out = append(out, s.Locked...)
	out = append(out, s.Hidden...)
	return out
}

// Len возвращает общее количество достижений.
func (s AchievementSet) Len() int {
	return len(s.Visible) + len(s.Locked) + len(s.Hidden)
}

// UnlockedCount считает разблокированные достижения.
func (s AchievementSet) UnlockedCount() int {
	n := 0
	for _, a := range s.All() {
		if a.Unlocked {
			n++
		}
	}
	return n
}

// Filter применяет опции отображения, сохраняя порядок.
// Карточки метрик видны всегда, даже в тире LOCKED.
func (s AchievementSet) Filter(showLocked, showHidden bool) AchievementSet {
	out := AchievementSet{Visible: s.Visible}
	for _, a := range s.Locked {
		if showLocked || a.Unlocked {
			out.Locked = append(out.Locked, a)
		}
	}
	if showHidden {
		out.Hidden = s.Hidden
	}
	return out
}
