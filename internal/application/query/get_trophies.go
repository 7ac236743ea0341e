package query

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/samber/lo"

	"github.com/devtrophies/trophies/config"
	"github.com/devtrophies/trophies/internal/domain/layout"
	"github.com/devtrophies/trophies/internal/domain/shared"
	"github.com/devtrophies/trophies/internal/domain/trophy"
	"github.com/devtrophies/trophies/pkg/logger"
	"github.com/devtrophies/trophies/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TROPHIES QUERY
// Полный конвейер одного запроса: агрегация метрик → уровень → набор
// достижений → фильтр → раскладка по сетке.
// Каждый запрос считается с нуля, кэша результатов нет.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultTheme - тема по умолчанию. Ядро её не интерпретирует.
const DefaultTheme = "dark"

var themePattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// GetTrophiesQuery содержит параметры запроса.
type GetTrophiesQuery struct {
	// Username - логин GitHub.
	Username string

	// Columns - число колонок (0 = по умолчанию, дальше ограничивается сеткой).
	Columns int

	// Theme - название темы, передаётся как есть.
	Theme string

	// Animation - включает задержки появления и свечение.
	Animation bool

	// ShowLocked - показывать незавершённые цели.
	ShowLocked bool

	// ShowHidden - показывать секретные достижения.
	ShowHidden bool
}

// NewGetTrophiesQuery возвращает запрос со значениями по умолчанию.
func NewGetTrophiesQuery(username string) GetTrophiesQuery {
	return GetTrophiesQuery{
		Username:   username,
		Theme:      DefaultTheme,
		Animation:  true,
		ShowLocked: false,
		ShowHidden: true,
	}
}

// Validate проверяет корректность параметров запроса.
func (q *GetTrophiesQuery) Validate() error {
	if _, err := shared.NewLogin(q.Username); err != nil {
		return err
	}
	if q.Columns < 0 {
		return errors.New("columns cannot be negative")
	}
	if q.Theme == "" {
		q.Theme = DefaultTheme
	}
	if !themePattern.MatchString(q.Theme) {
		return errors.New("theme must be 1-32 characters of [a-z0-9_-]")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// DTO
// ─────────────────────────────────────────────────────────────────────────────

// ProfileDTO - краткие данные профиля.
type ProfileDTO struct {
	Login     string    `json:"login"`
	Followers int       `json:"followers"`
	Following int       `json:"following"`
	Repos     int       `json:"public_repos"`
	Stars     int       `json:"stars"`
	CreatedAt time.Time `json:"created_at"`

	// Rank - буквенный ранг профиля (C..S+).
	Rank string `json:"rank"`
}

// LevelDTO - уровень и прогресс.
type LevelDTO struct {
	Level       int     `json:"level"`
	Title       string  `json:"title"`
	TotalXP     int     `json:"total_xp"`
	CurrentXP   int     `json:"current_xp"`
	NextLevelXP int     `json:"next_level_xp"`
	ProgressPct float64 `json:"progress_pct"`
}

// AchievementDTO - достижение с готовой строкой значения.
type AchievementDTO struct {
	trophy.Achievement

	// DisplayValue - компактное значение для карточки ("1.2k").
	DisplayValue string `json:"display_value"`
}

// GetTrophiesResult - результат запроса.
type GetTrophiesResult struct {
	Profile      ProfileDTO          `json:"profile"`
	Level        LevelDTO            `json:"level"`
	Achievements []AchievementDTO    `json:"achievements"`
	Layout       layout.LayoutResult `json:"layout"`

	Theme     string `json:"theme"`
	Animation bool   `json:"animation"`

	// Degraded - метрики, посчитанные как 0 из-за сбоя источника.
	Degraded []string `json:"degraded,omitempty"`

	UnlockedCount int       `json:"unlocked_count"`
	TotalCount    int       `json:"total_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// IsPartial сообщает, что часть метрик недоступна.
func (r *GetTrophiesResult) IsPartial() bool {
	return len(r.Degraded) > 0
}

// ─────────────────────────────────────────────────────────────────────────────
// HANDLER
// ─────────────────────────────────────────────────────────────────────────────

// FeatureGate - проверка фич-флагов. *config.FeatureFlags удовлетворяет ему.
type FeatureGate interface {
	IsEnabled(featureName string, ctx *config.FeatureContext) bool
}

// GetTrophiesHandler обрабатывает запрос трофеев.
type GetTrophiesHandler struct {
	aggregator *MetricAggregator
	builder    *trophy.Builder
	grid       *layout.Grid
	features   FeatureGate
	clock      timeutil.Clock
	log        *logger.Logger
}

// NewGetTrophiesHandler создаёт новый handler.
// features может быть nil: тогда все фичи включены.
func NewGetTrophiesHandler(
	aggregator *MetricAggregator,
	builder *trophy.Builder,
	grid *layout.Grid,
	features FeatureGate,
	clock timeutil.Clock,
	log *logger.Logger,
) *GetTrophiesHandler {
	if clock == nil {
		clock = timeutil.SystemClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GetTrophiesHandler{
		aggregator: aggregator,
		builder:    builder,
		grid:       grid,
		features:   features,
		clock:      clock,
		log:        log.With(logger.Component("trophies")),
	}
}

// Handle выполняет запрос.
func (h *GetTrophiesHandler) Handle(ctx context.Context, query GetTrophiesQuery) (*GetTrophiesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetTrophies", shared.ErrValidation, err.Error(), err)
	}

	login, _ := shared.NewLogin(query.Username)

	aggregated, err := h.aggregator.Aggregate(ctx, login)
	if err != nil {
		return nil, err
	}

	result := h.Assemble(aggregated, query)

	h.log.Info("trophies computed",
		logger.Login(result.Profile.Login),
		logger.UserLevel(result.Level.Level),
		logger.XPAmount(result.Level.TotalXP),
		logger.Int("cards", len(result.Achievements)),
		logger.Degraded(result.Degraded),
	)

	return result, nil
}

// Assemble строит результат из уже собранных метрик. Без I/O.
func (h *GetTrophiesHandler) Assemble(aggregated *AggregationResult, query GetTrophiesQuery) *GetTrophiesResult {
	metrics := aggregated.Metrics
	snap := aggregated.Snapshot
	fctx := &config.FeatureContext{Login: snap.Login}

	totalXP, state := h.builder.Level(metrics)

	set := h.builder.Build(metrics)
	if !h.enabled(config.FeatureGoalAchievements, fctx) {
		set.Locked = nil
	}
	if !h.enabled(config.FeatureSecretAchievements, fctx) {
		set.Hidden = nil
	}
	full := set
	set = set.Filter(query.ShowLocked, query.ShowHidden)

	items := set.All()
	animated := query.Animation && h.enabled(config.FeatureAnimation, fctx)
	grid := h.grid.Arrange(items, layout.Options{Columns: query.Columns, Animated: animated})

	theme := query.Theme
	if theme == "" {
		theme = DefaultTheme
	}

	return &GetTrophiesResult{
		Profile: ProfileDTO{
			Login:     snap.Login,
			Followers: snap.Followers,
			Following: snap.Following,
			Repos:     snap.PublicRepos,
			Stars:     snap.StarsTotal,
			CreatedAt: snap.CreatedAt,
			Rank:      trophy.ProfileRank(metrics),
		},
		Level: LevelDTO{
			Level:       state.Level,
			Title:       trophy.LevelTitle(state.Level),
			TotalXP:     totalXP,
			CurrentXP:   state.CurrentXP,
			NextLevelXP: state.NextLevelXP,
			ProgressPct: state.ProgressPct,
		},
		Achievements: lo.Map(items, func(a trophy.Achievement, _ int) AchievementDTO {
			return AchievementDTO{Achievement: a, DisplayValue: a.DisplayValue()}
		}),
		Layout:        grid,
		Theme:         theme,
		Animation:     animated,
		Degraded:      lo.Map(aggregated.Degraded, func(id trophy.MetricID, _ int) string { return id.String() }),
		UnlockedCount: full.UnlockedCount(),
		TotalCount:    full.Len(),
		GeneratedAt:   h.clock.Now(),
	}
}

func (h *GetTrophiesHandler) enabled(name string, fctx *config.FeatureContext) bool {
	if h.features == nil {
		return true
	}
	return h.features.IsEnabled(name, fctx)
}
