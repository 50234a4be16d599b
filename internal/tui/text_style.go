package tui

import (
	"strings"
)

func colorizeDetailLine(line string, theme UITheme) string {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return fg(theme.DetailsValue).Render(line)
	}
	label := line[:idx+1]
	value := strings.TrimSpace(line[idx+1:])
	labelStyled := fg(theme.DetailsLabel).Render(label)
	if value == "" {
		return labelStyled
	}
	return labelStyled + " " + fg(theme.DetailsValue).Render(value)
}
