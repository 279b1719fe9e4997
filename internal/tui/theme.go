package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// Theme defines the color palette and styles for the interactive browser.
type Theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Danger  lipgloss.Color
	Muted   lipgloss.Color

	PanelStyle lipgloss.Style
	TitleStyle lipgloss.Style
	LabelStyle lipgloss.Style
	ValueStyle lipgloss.Style

	StatusReady   lipgloss.Style
	StatusRunning lipgloss.Style
	StatusStopped lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusPending lipgloss.Style
}

// DefaultTheme returns a theme with default colors and styles.
func DefaultTheme() *Theme {
	theme := &Theme{
		Primary: lipgloss.Color("#5FAFFF"),
		Success: lipgloss.Color("#5FD787"),
		Warning: lipgloss.Color("#FFD75F"),
		Danger:  lipgloss.Color("#FF5F5F"),
		Muted:   lipgloss.Color("240"),
	}

	theme.PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Muted).
		Padding(0, 1)

	theme.TitleStyle = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	theme.LabelStyle = lipgloss.NewStyle().
		Foreground(theme.Muted)

	theme.ValueStyle = lipgloss.NewStyle()

	theme.StatusReady = lipgloss.NewStyle().
		Foreground(theme.Success).
		Bold(true)

	theme.StatusRunning = lipgloss.NewStyle().
		Foreground(theme.Primary)

	theme.StatusStopped = lipgloss.NewStyle().
		Foreground(theme.Muted)

	theme.StatusFailed = lipgloss.NewStyle().
		Foreground(theme.Danger).
		Bold(true)

	theme.StatusPending = lipgloss.NewStyle().
		Foreground(theme.Warning)

	return theme
}

// StatusStyle returns the style for an instance status.
func (t *Theme) StatusStyle(status types.InstanceStatus) lipgloss.Style {
	switch status {
	case types.StatusReady:
		return t.StatusReady
	case types.StatusRunning, types.StatusIngesting:
		return t.StatusRunning
	case types.StatusStopped, types.StatusRemoved:
		return t.StatusStopped
	case types.StatusFailed:
		return t.StatusFailed
	default:
		return t.StatusPending
	}
}
