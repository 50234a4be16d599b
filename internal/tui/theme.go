package tui

import (
	"github.com/charmbracelet/lipgloss"

	"gh-issues/internal/theme"
)

type UITheme = theme.PaletteResolved

func defaultUITheme() UITheme {
	return theme.Resolve(theme.DefaultPaletteHex(), theme.DetectProfile())
}

func withDefaults(t UITheme) UITheme {
	if t.TextPrimary == "" {
		return defaultUITheme()
	}
	return t
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func stateColor(state string, t UITheme) string {
	switch state {
	case "open":
		return t.StateOpen
	case "closed":
		return t.StateClosed
	default:
		return t.TextMuted
	}
}
