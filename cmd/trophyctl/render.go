package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/devtrophies/trophies/internal/application/query"
	"github.com/devtrophies/trophies/internal/domain/trophy"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)

	tierColors = map[trophy.Tier]lipgloss.Color{
		trophy.TierLocked:    lipgloss.Color("240"),
		trophy.TierBronze:    lipgloss.Color("173"),
		trophy.TierSilver:    lipgloss.Color("250"),
		trophy.TierGold:      lipgloss.Color("220"),
		trophy.TierLegendary: lipgloss.Color("135"),
	}
)

const progressWidth = 10

// render печатает профиль, уровень и таблицу карточек в порядке сетки.
func render(r *query.GetTrophiesResult, now time.Time) string {
	var b strings.Builder

	p := r.Profile
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  [%s]", p.Login, p.Rank)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s followers · %s repos · %s stars · joined %s",
		humanize.Comma(int64(p.Followers)),
		humanize.Comma(int64(p.Repos)),
		humanize.Comma(int64(p.Stars)),
		humanize.RelTime(p.CreatedAt, now, "ago", "from now"),
	)))
	b.WriteString("\n\n")

	lv := r.Level
	b.WriteString(fmt.Sprintf("Level %d %s  %s  %s/%s XP (total %s)\n",
		lv.Level, lv.Title,
		progressBar(lv.ProgressPct),
		humanize.Comma(int64(lv.CurrentXP)),
		humanize.Comma(int64(lv.NextLevelXP)),
		humanize.Comma(int64(lv.TotalXP)),
	))

	if len(r.Degraded) > 0 {
		b.WriteString(warnStyle.Render("partial data: " + strings.Join(r.Degraded, ", ") + " unavailable"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(achievementTable(r).String())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d of %d unlocked · %dx%d grid · %dx%d px",
		r.UnlockedCount, r.TotalCount,
		r.Layout.Columns, r.Layout.Rows,
		r.Layout.Width, r.Layout.Height,
	)))
	b.WriteString("\n")

	return b.String()
}

func achievementTable(r *query.GetTrophiesResult) *table.Table {
	rows := make([][]string, 0, len(r.Achievements))
	tiers := make([]trophy.Tier, 0, len(r.Achievements))

	for i, a := range r.Achievements {
		pos := ""
		if i < len(r.Layout.Cells) {
			c := r.Layout.Cells[i]
			pos = fmt.Sprintf("%d,%d", c.Row, c.Column)
		}

		progress := ""
		if a.HasProgress() {
			progress = progressBar(a.ProgressPct)
			if a.NextValue != nil {
				progress += " → " + humanize.Comma(int64(*a.NextValue))
			}
		}

		rows = append(rows, []string{
			pos,
			a.Icon + " " + a.Title,
			string(a.Tier),
			a.Rank,
			a.DisplayValue,
			progress,
		})
		tiers = append(tiers, a.Tier)
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("Pos", "Achievement", "Tier", "Rank", "Value", "Progress").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headStyle
			}
			if col == 2 && row >= 0 && row < len(tiers) {
				return cellStyle.Foreground(tierColors[tiers[row]])
			}
			return cellStyle
		})
}

// progressBar рисует полосу фиксированной ширины по проценту 0..100.
func progressBar(pct float64) string {
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	filled := int(pct / 100 * progressWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled) + fmt.Sprintf(" %3.0f%%", pct)
}
