// Package layout раскладывает карточки достижений по сетке фиксированной ширины.
package layout

import (
	"fmt"

	"github.com/devtrophies/trophies/internal/domain/trophy"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRID CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// GridConfig - размеры карточек и правила выбора числа колонок.
type GridConfig struct {
	CardWidth    int `json:"card_width"`
	CardHeight   int `json:"card_height"`
	Gap          int `json:"gap"`
	HeaderHeight int `json:"header_height"`
	FooterMargin int `json:"footer_margin"`

	MinColumns     int `json:"min_columns"`
	MaxColumns     int `json:"max_columns"`
	DefaultColumns int `json:"default_columns"`

	// ForcedColumns > 0 игнорирует выбор вызывающего.
	ForcedColumns int `json:"forced_columns"`

	BaseDelayMs int `json:"base_delay_ms"`
	StaggerMs   int `json:"stagger_ms"`
}

// DefaultGridConfig возвращает стандартную сетку: карточки 155×185, зазор 15.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		CardWidth:      155,
		CardHeight:     185,
		Gap:            15,
		HeaderHeight:   90,
		FooterMargin:   20,
		MinColumns:     1,
		MaxColumns:     6,
		DefaultColumns: 3,
		BaseDelayMs:    0,
		StaggerMs:      100,
	}
}

// Validate проверяет размеры сетки.
func (c GridConfig) Validate() error {
	switch {
	case c.CardWidth <= 0 || c.CardHeight <= 0:
		return fmt.Errorf("card size must be positive, got %dx%d", c.CardWidth, c.CardHeight)
	case c.Gap < 0 || c.HeaderHeight < 0 || c.FooterMargin < 0:
		return fmt.Errorf("gap, header and footer must be non-negative")
	case c.MinColumns < 1 || c.MaxColumns < c.MinColumns:
		return fmt.Errorf("column range [%d,%d] is invalid", c.MinColumns, c.MaxColumns)
	case c.DefaultColumns < c.MinColumns || c.DefaultColumns > c.MaxColumns:
		return fmt.Errorf("default columns %d outside [%d,%d]", c.DefaultColumns, c.MinColumns, c.MaxColumns)
	case c.BaseDelayMs < 0 || c.StaggerMs < 0:
		return fmt.Errorf("animation delays must be non-negative")
	}
	return nil
}

// Columns выбирает число колонок: принудительное значение, иначе запрошенное
// (0 = по умолчанию), зажатое в [MinColumns, MaxColumns]. Отрицательные
// значения зажимаются к MinColumns, а не заменяются значением по умолчанию.
func (c GridConfig) Columns(requested int) int {
	cols := requested
	if c.ForcedColumns > 0 {
		cols = c.ForcedColumns
	}
	if cols == 0 {
		cols = c.DefaultColumns
	}
	if cols < c.MinColumns {
		cols = c.MinColumns
	}
	if cols > c.MaxColumns {
		cols = c.MaxColumns
	}
	return cols
}

// ══════════════════════════════════════════════════════════════════════════════
// LAYOUT RESULT
// ══════════════════════════════════════════════════════════════════════════════

// LayoutCell - позиция одной карточки. Целиком определяется индексом.
type LayoutCell struct {
	Index      int       `json:"index"`
	Column     int       `json:"column"`
	Row        int       `json:"row"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	ResourceID string    `json:"resource_id"`
	DelayMs    int       `json:"delay_ms"`
	Style      CellStyle `json:"style"`
}

// LayoutResult - позиции карточек и размер холста.
type LayoutResult struct {
	Columns    int          `json:"columns"`
	Rows       int          `json:"rows"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	CardWidth  int          `json:"card_width"`
	CardHeight int          `json:"card_height"`
	Cells      []LayoutCell `json:"cells"`
}

// Options - параметры раскладки, приходящие от вызывающего.
type Options struct {
	Columns  int
	Animated bool
}

// Grid раскладывает карточки по сетке. Ошибок не бывает: пустой
// список даёт ноль строк и холст высотой header+footer.
type Grid struct {
	config GridConfig
}

// NewGrid создаёт раскладчик.
func NewGrid(config GridConfig) *Grid {
	return &Grid{config: config}
}

// Config возвращает параметры сетки.
func (g *Grid) Config() GridConfig {
	return g.config
}

// Arrange вычисляет позицию, идентификатор ресурса и задержку анимации
// для каждой карточки: column = i mod c, row = floor(i / c).
func (g *Grid) Arrange(items []trophy.Achievement, opts Options) LayoutResult {
	c := g.config
	cols := c.Columns(opts.Columns)
	rows := (len(items) + cols - 1) / cols

	result := LayoutResult{
		Columns:    cols,
		Rows:       rows,
		Width:      cols*(c.CardWidth+c.Gap) + c.Gap,
		Height:     c.HeaderHeight + rows*(c.CardHeight+c.Gap) + c.FooterMargin,
		CardWidth:  c.CardWidth,
		CardHeight: c.CardHeight,
		Cells:      make([]LayoutCell, 0, len(items)),
	}

	for i, item := range items {
		col := i % cols
		row := i / cols
		result.Cells = append(result.Cells, LayoutCell{
			Index:  i,
			Column: col,
			Row:    row,
			X:      c.Gap + col*(c.CardWidth+c.Gap),
			Y:      c.HeaderHeight + row*(c.CardHeight+c.Gap),
			// Индекс в идентификаторе делает его уникальным даже при совпадении id.
			ResourceID: ResourceID(item.ID, i),
			DelayMs:    c.BaseDelayMs + i*c.StaggerMs,
			Style:      StyleFor(item.Tier, opts.Animated),
		})
	}

	return result
}

// ResourceID возвращает идентификатор градиента/анимации карточки.
func ResourceID(id string, index int) string {
	return fmt.Sprintf("grad_%s_%d", sanitizeID(id), index)
}

// sanitizeID оставляет только символы, допустимые в идентификаторах разметки.
func sanitizeID(id string) string {
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			out = append(out, ch)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
