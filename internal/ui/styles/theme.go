package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme colors
var (
	Primary   = lipgloss.Color("#7C3AED")
	Secondary = lipgloss.Color("#A78BFA")
	Success   = lipgloss.Color("#10B981")
	Warning   = lipgloss.Color("#F59E0B")
	Danger    = lipgloss.Color("#EF4444")
	Info      = lipgloss.Color("#3B82F6")
	Muted     = lipgloss.Color("#6B7280")
	TextDim   = lipgloss.Color("#9CA3AF")
)

// Status line styles
var (
	CountStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	FileSizeStyle = lipgloss.NewStyle().
			Foreground(Warning)

	RateStyle = lipgloss.NewStyle().
			Foreground(Info)

	FilePathStyle = lipgloss.NewStyle().
			Foreground(TextDim)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	EstimateStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(TextDim)
)

// ProgressBar draws a plain block bar for terminals driven without
// bubbletea
func ProgressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	filled := int(fraction * float64(width))
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}
	return string(bar)
}
