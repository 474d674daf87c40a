package tui

import "github.com/charmbracelet/lipgloss"

// Palette Lumina 的品牌色（靛蓝 + 青色，与网页版一致）
// Palette holds the Lumina brand colors shared with the web front end.
type Palette struct {
	Indigo  lipgloss.Color
	Cyan    lipgloss.Color
	Amber   lipgloss.Color
	Red     lipgloss.Color
	Emerald lipgloss.Color
	Slate   lipgloss.Color
	Ink     lipgloss.Color
	Fog     lipgloss.Color
	Line    lipgloss.Color
	Night   lipgloss.Color
}

var luminaPalette = Palette{
	Indigo:  lipgloss.Color("#6366F1"),
	Cyan:    lipgloss.Color("#22D3EE"),
	Amber:   lipgloss.Color("#F59E0B"),
	Red:     lipgloss.Color("#EF4444"),
	Emerald: lipgloss.Color("#10B981"),
	Slate:   lipgloss.Color("#6B7280"),
	Ink:     lipgloss.Color("#E5E7EB"),
	Fog:     lipgloss.Color("#9CA3AF"),
	Line:    lipgloss.Color("#374151"),
	Night:   lipgloss.Color("#111827"),
}

// Theme 终端界面用到的全部样式
// Theme is the set of lipgloss styles used by the terminal views.
type Theme struct {
	Palette Palette

	Title, ActiveTab, InactiveTab lipgloss.Style
	StatusBar, Sidebar, Input     lipgloss.Style
	Error, Success, Muted         lipgloss.Style
	Tag, ID                       lipgloss.Style
	User, Model                   lipgloss.Style

	// 复杂度标签 / complexity chips
	Low, Medium, High lipgloss.Style
}

// LuminaTheme 默认暗色主题 / the default dark theme
func LuminaTheme() Theme {
	p := luminaPalette
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	ruled := lipgloss.NewStyle().Foreground(p.Ink).BorderStyle(lipgloss.NormalBorder()).BorderForeground(p.Line)
	chip := lipgloss.NewStyle().Padding(0, 1).Foreground(p.Night)

	return Theme{
		Palette: p,

		Title:       fg(p.Indigo).Bold(true),
		ActiveTab:   fg(p.Ink).Background(p.Indigo).Padding(0, 2).Bold(true),
		InactiveTab: fg(p.Fog).Padding(0, 2),

		StatusBar: fg(p.Fog).Background(p.Night),
		Sidebar:   ruled.BorderLeft(true),
		Input:     ruled.BorderTop(true),

		Error:   fg(p.Red).Bold(true),
		Success: fg(p.Emerald),
		Muted:   fg(p.Slate),
		Tag:     fg(p.Cyan),
		ID:      fg(p.Slate).Faint(true),
		User:    fg(p.Amber).Bold(true),
		Model:   fg(p.Indigo).Bold(true),

		Low:    chip.Background(p.Emerald),
		Medium: chip.Background(p.Amber),
		High:   chip.Background(p.Red),
	}
}
