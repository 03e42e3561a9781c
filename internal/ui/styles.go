package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sysmon/pkg/utils"
)

// Theme colors
var (
	PrimaryColor   = lipgloss.Color("#5B9BD5")
	AccentColor    = lipgloss.Color("#00D4AA")
	SuccessColor   = lipgloss.Color("#2ECC71")
	WarningColor   = lipgloss.Color("#F1C40F")
	HighColor      = lipgloss.Color("#E67E22")
	ErrorColor     = lipgloss.Color("#E74C3C")
	TextColor      = lipgloss.Color("#FFFFFF")
	SubtextColor   = lipgloss.Color("#B0B0B0")
	MutedColor     = lipgloss.Color("#6C6C6C")
	DimColor       = lipgloss.Color("#4A4A4A")
	SyntheticColor = lipgloss.Color("#9B59B6") // estimated readings
)

var (
	BoldStyle      = lipgloss.NewStyle().Bold(true)
	PrimaryStyle   = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	AccentStyle    = lipgloss.NewStyle().Foreground(AccentColor)
	SuccessStyle   = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	WarningStyle   = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	ErrorStyle     = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	WhiteStyle     = lipgloss.NewStyle().Foreground(TextColor)
	GrayStyle      = lipgloss.NewStyle().Foreground(SubtextColor)
	MutedStyle     = lipgloss.NewStyle().Foreground(MutedColor)
	DimStyle       = lipgloss.NewStyle().Foreground(DimColor)
	SyntheticStyle = lipgloss.NewStyle().Foreground(SyntheticColor).Italic(true)

	SectionTitleStyle = lipgloss.NewStyle().Foreground(TextColor).Bold(true)
	BorderStyle       = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	HeaderRowStyle    = lipgloss.NewStyle().Foreground(TextColor).Bold(true)
)

// Status icons
const (
	IconSuccess = "✓"
	IconWarning = "⚠"
	IconError   = "✗"
	IconInfo    = "ℹ"
	IconBullet  = "•"
)

const (
	boxTopLeft     = "┌"
	boxTopRight    = "┐"
	boxBottomLeft  = "└"
	boxBottomRight = "┘"
	boxHorizontal  = "─"

	progressFull  = "█"
	progressEmpty = "░"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// DefaultWidth is the section width used by the status views.
const DefaultWidth = 72

// RenderBanner returns the styled banner.
func RenderBanner() string {
	banner := `███████╗██╗   ██╗███████╗███╗   ███╗ ██████╗ ███╗   ██╗
██╔════╝╚██╗ ██╔╝██╔════╝████╗ ████║██╔═══██╗████╗  ██║
███████╗ ╚████╔╝ ███████╗██╔████╔██║██║   ██║██╔██╗ ██║
╚════██║  ╚██╔╝  ╚════██║██║╚██╔╝██║██║   ██║██║╚██╗██║
███████║   ██║   ███████║██║ ╚═╝ ██║╚██████╔╝██║ ╚████║
╚══════╝   ╚═╝   ╚══════╝╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═══╝`
	return PrimaryStyle.Render(banner)
}

// RenderSectionStart returns a boxed section header.
func RenderSectionStart(title string) string {
	dashCount := DefaultWidth - lipgloss.Width(title) - 4
	if dashCount < 0 {
		dashCount = 0
	}
	return BorderStyle.Render(boxTopLeft+boxHorizontal+" ") +
		SectionTitleStyle.Render(title) +
		BorderStyle.Render(" "+strings.Repeat(boxHorizontal, dashCount)+boxTopRight)
}

// RenderSectionEnd returns a section footer.
func RenderSectionEnd() string {
	return BorderStyle.Render(boxBottomLeft + strings.Repeat(boxHorizontal, DefaultWidth) + boxBottomRight)
}

// RenderStatus returns a styled status message
func RenderStatus(status, message string) string {
	icon, style := IconInfo, PrimaryStyle
	switch status {
	case "success":
		icon, style = IconSuccess, SuccessStyle
	case "warning":
		icon, style = IconWarning, WarningStyle
	case "error":
		icon, style = IconError, ErrorStyle
	}
	return "  " + style.Render(icon) + " " + WhiteStyle.Render(message)
}

// RenderKeyValue returns a styled key-value pair
func RenderKeyValue(key, value string) string {
	return "  " + AccentStyle.Render(IconBullet) + " " +
		WhiteStyle.Render(key) + " " +
		MutedStyle.Render(":") + " " +
		GrayStyle.Render(value)
}

// LevelStyle maps a severity bucket to its style.
func LevelStyle(l utils.Level) lipgloss.Style {
	switch l {
	case utils.LevelCritical:
		return ErrorStyle
	case utils.LevelHigh:
		return lipgloss.NewStyle().Foreground(HighColor).Bold(true)
	case utils.LevelMedium:
		return WarningStyle
	}
	return SuccessStyle
}

// RenderProgressBar draws percent as a bar of the given width.
func RenderProgressBar(percent float64, width int, level utils.Level) string {
	if width <= 0 {
		width = 20
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return LevelStyle(level).Render(strings.Repeat(progressFull, filled)) +
		DimStyle.Render(strings.Repeat(progressEmpty, width-filled))
}

// Sparkline renders the last width values as block characters scaled to
// max. A non-positive max scales to the largest value shown.
func Sparkline(values []float64, width int, max float64) string {
	if width > 0 && len(values) > width {
		values = values[len(values)-width:]
	}
	if max <= 0 {
		for _, v := range values {
			if v > max {
				max = v
			}
		}
	}

	out := make([]rune, len(values))
	top := len(sparkBlocks) - 1
	for i, v := range values {
		idx := 0
		if max > 0 {
			idx = int(v / max * float64(top))
		}
		if idx < 0 {
			idx = 0
		}
		if idx > top {
			idx = top
		}
		out[i] = sparkBlocks[idx]
	}
	return string(out)
}
