// Package tui provides terminal styling for the CLI surfaces.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorText      = lipgloss.Color("#E5E7EB") // Light gray
	ColorTextMuted = lipgloss.Color("#9CA3AF") // Muted gray
	ColorBorder    = lipgloss.Color("#374151") // Dark gray
)

var (
	// TitleStyle is for topic and round headings.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtleStyle is for secondary detail lines.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// PersonaStyle is for persona names in progress lines.
	PersonaStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	// FallbackStyle marks substituted contributions.
	FallbackStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Italic(true)

	// WinnerStyle is for the winning proposal line.
	WinnerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess)

	// ErrorStyle is for failure lines.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// VerdictBoxStyle frames a successful outcome.
	VerdictBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSuccess).
			Padding(1, 2)

	// FailureBoxStyle frames a failed outcome.
	FailureBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(1, 2)
)
