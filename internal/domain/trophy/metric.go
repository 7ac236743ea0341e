package trophy

import (
	"time"

	"github.com/devtrophies/trophies/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// MetricID идентифицирует отслеживаемую метрику профиля.
type MetricID string

const (
	MetricStars      MetricID = "stars"
	MetricRepos      MetricID = "repos"
	MetricFollowers  MetricID = "followers"
	MetricIssues     MetricID = "issues"
	MetricPRs        MetricID = "prs"
	MetricExperience MetricID = "experience"
)

// MetricOrder - канонический порядок отображения метрик.
// От него зависит порядок карточек, поэтому менять его нельзя.
var MetricOrder = []MetricID{
	MetricStars,
	MetricRepos,
	MetricFollowers,
	MetricIssues,
	MetricPRs,
	MetricExperience,
}

// IsValid проверяет, что метрика известна.
func (m MetricID) IsValid() bool {
	for _, id := range MetricOrder {
		if id == m {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (m MetricID) String() string {
	return string(m)
}

// metricInfo - статическое описание метрики для карточки.
type metricInfo struct {
	Label  string
	Icon   string
	Titles [4]string
}

var metricCatalog = map[MetricID]metricInfo{
	MetricStars:      {"Stars", "⭐", [4]string{"Beginner Stargazer", "Stargazer", "Master Stargazer", "God Stargazer"}},
	MetricRepos:      {"Repos", "📦", [4]string{"Repo Creator", "Middle Repo Creator", "Hyper Repo Creator", "Repo Titan"}},
	MetricFollowers:  {"Followers", "👥", [4]string{"New User", "Dynamic User", "Famous User", "Community Idol"}},
	MetricIssues:     {"Issues", "🐛", [4]string{"First Issue", "Issuer", "High Issuer", "Bug Slayer"}},
	MetricPRs:        {"PR", "🔀", [4]string{"First PR", "PR User", "PR Hunter", "PR Master"}},
	MetricExperience: {"Years", "⏳", [4]string{"Newcomer", "Developer", "Veteran", "OG Developer"}},
}

// Metric - агрегированное значение одной метрики. Неизменяемо после агрегации.
type Metric struct {
	ID       MetricID
	RawValue int
	Weight   int
}

// XP возвращает вклад метрики в общий опыт.
func (m Metric) XP() int {
	return m.RawValue * m.Weight
}

// MetricSet - отображение метрика → значение.
// Значения всегда неотрицательны: нормализация происходит в NewMetricSet.
type MetricSet struct {
	values map[MetricID]int
}

// NewMetricSet создаёт набор метрик, приводя отрицательные значения к нулю.
// Отсутствующие метрики считаются равными нулю.
func NewMetricSet(values map[MetricID]int) MetricSet {
	normalized := make(map[MetricID]int, len(MetricOrder))
	for _, id := range MetricOrder {
		normalized[id] = shared.NonNegative(values[id])
	}
	return MetricSet{values: normalized}
}

// Value возвращает значение метрики.
func (s MetricSet) Value(id MetricID) int {
	return s.values[id]
}

// Metrics возвращает метрики в каноническом порядке с весами.
func (s MetricSet) Metrics(weights Weights) []Metric {
	out := make([]Metric, 0, len(MetricOrder))
	for _, id := range MetricOrder {
		out = append(out, Metric{ID: id, RawValue: s.Value(id), Weight: weights[id]})
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Profile - первичные данные пользователя от провайдера.
type Profile struct {
	Login       string
	PublicRepos int
	Followers   int
	Following   int
	CreatedAt   time.Time
}

// ProfileSnapshot - нормализованный профиль, уже объединённый
// с результатами вспомогательных запросов (возможно частичными).
type ProfileSnapshot struct {
	Login            string    `json:"login"`
	PublicRepos      int       `json:"public_repos"`
	Followers        int       `json:"followers"`
	Following        int       `json:"following"`
	CreatedAt        time.Time `json:"created_at"`
	StarsTotal       int       `json:"stars_total"`
	PullRequestCount int       `json:"pull_request_count"`
	IssueCount       int       `json:"issue_count"`
}

const daysPerYear = 365

// AccountAgeYears - полных лет с момента регистрации: floor(дней / 365).
func AccountAgeYears(createdAt, now time.Time) int {
	if createdAt.IsZero() || now.Before(createdAt) {
		return 0
	}
	days := int(now.Sub(createdAt).Hours() / 24)
	return days / daysPerYear
}

// MetricsFromSnapshot переводит снимок профиля в набор метрик.
func MetricsFromSnapshot(snap ProfileSnapshot, now time.Time) MetricSet {
	return NewMetricSet(map[MetricID]int{
		MetricStars:      snap.StarsTotal,
		MetricRepos:      snap.PublicRepos,
		MetricFollowers:  snap.Followers,
		MetricIssues:     snap.IssueCount,
		MetricPRs:        snap.PullRequestCount,
		MetricExperience: AccountAgeYears(snap.CreatedAt, now),
	})
}
