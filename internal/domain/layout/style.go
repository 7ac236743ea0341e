package layout

import "github.com/devtrophies/trophies/internal/domain/trophy"

// CellStyle - подсказки оформления карточки, зависящие только от тира.
// Цвета задаёт тема презентационного слоя.
type CellStyle struct {
	FrameStrokeWidth float64 `json:"frame_stroke_width"`
	FrameOpacity     float64 `json:"frame_opacity"`
	Glow             bool    `json:"glow"`
	Animated         bool    `json:"animated"`
}

// StyleFor возвращает оформление для тира.
func StyleFor(tier trophy.Tier, animated bool) CellStyle {
	style := CellStyle{
		FrameStrokeWidth: 1.5,
		FrameOpacity:     1,
		Animated:         animated,
	}
	switch tier {
	case trophy.TierLegendary:
		style.FrameStrokeWidth = 2.5
		style.Glow = animated
	case trophy.TierGold:
		style.Glow = animated
	case trophy.TierBronze:
		style.FrameOpacity = 0.4
	}
	return style
}
