package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tally/internal/model"
)

// Color palette. Each color has a light and a dark variant; applyTheme picks
// which one lipgloss renders.
var (
	colorPrimary   = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#6C63FF"}
	colorSecondary = lipgloss.AdaptiveColor{Light: "#1E9E92", Dark: "#2EC4B6"}
	colorAccent    = lipgloss.AdaptiveColor{Light: "#D64545", Dark: "#FF6B6B"}
	colorMuted     = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#666666"}
	colorSuccess   = lipgloss.AdaptiveColor{Light: "#1E8449", Dark: "#2ECC71"}
	colorWarning   = lipgloss.AdaptiveColor{Light: "#B9770E", Dark: "#F39C12"}
	colorError     = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#E74C3C"}
	colorFg        = lipgloss.AdaptiveColor{Light: "#1A1B26", Dark: "#C0CAF5"}
	colorSubtle    = lipgloss.AdaptiveColor{Light: "#C8CCE0", Dark: "#414868"}
	colorHighlight = lipgloss.AdaptiveColor{Light: "#3B6AD9", Dark: "#7AA2F7"}
)

// Styles
var (
	// Tabs
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 2)

	// Panels
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Padding(1, 2)

	// Big numbers
	bigNumberStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	// Text
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	accentStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	highlightStyle = lipgloss.NewStyle().
			Foreground(colorHighlight)

	// Header/footer
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	// List items
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	// Bars
	barFillStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)
)

// systemDark is the terminal's own background, detected once at startup.
var systemDark = true

// detectSystemTheme records the terminal background so SYSTEM can be
// restored after a forced theme.
func detectSystemTheme() {
	systemDark = lipgloss.HasDarkBackground()
}

// applyTheme switches every adaptive color to the light or dark variant.
func applyTheme(t model.Theme) {
	switch t {
	case model.ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	case model.ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	default:
		lipgloss.SetHasDarkBackground(systemDark)
	}
}
