package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"gh-issues/internal/issues"
)

type columnSpec struct {
	title  string
	min    int
	max    int
	weight int
}

var issueColumns = []columnSpec{
	{title: "#", min: 5, max: 7, weight: 0},
	{title: "State", min: 6, max: 6, weight: 0},
	{title: "Title", min: 16, max: 80, weight: 5},
	{title: "Labels", min: 8, max: 30, weight: 2},
	{title: "Assignees", min: 9, max: 24, weight: 1},
	{title: "Updated", min: 16, max: 16, weight: 0},
}

// issueTable renders the rows of the last render snapshot. It never reorders
// them.
type issueTable struct {
	rows   []issues.ViewModel
	cursor int
	scroll int
	height int
}

func (t *issueTable) setRows(rows []issues.ViewModel) {
	var keep int
	if cur, ok := t.current(); ok {
		keep = cur.Number
	}
	t.rows = append([]issues.ViewModel(nil), rows...)
	t.cursor = 0
	for i, r := range t.rows {
		if r.Number == keep {
			t.cursor = i
			break
		}
	}
	t.ensureVisible()
}

func (t *issueTable) setHeight(h int) {
	t.height = h
	t.ensureVisible()
}

func (t *issueTable) moveCursor(delta int) {
	if len(t.rows) == 0 {
		return
	}
	t.cursor = clampInt(t.cursor+delta, 0, len(t.rows)-1)
	t.ensureVisible()
}

func (t issueTable) current() (issues.ViewModel, bool) {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return issues.ViewModel{}, false
	}
	return t.rows[t.cursor], true
}

func (t *issueTable) ensureVisible() {
	if len(t.rows) == 0 {
		t.cursor = 0
		t.scroll = 0
		return
	}
	rows := t.bodyRows()
	if t.cursor < t.scroll {
		t.scroll = t.cursor
	}
	if t.cursor >= t.scroll+rows {
		t.scroll = t.cursor - rows + 1
	}
	t.scroll = clampInt(t.scroll, 0, max(len(t.rows)-rows, 0))
}

func (t issueTable) bodyRows() int {
	height := t.height
	if height <= 0 {
		height = 30
	}
	// top border, header, separator, bottom border
	return max(height-4, 3)
}

func (t issueTable) render(totalWidth int, theme UITheme) string {
	widths := allocateColumnWidths(totalWidth-2, issueColumns)
	rowLimit := t.bodyRows()
	start := t.scroll
	end := min(start+rowLimit, len(t.rows))

	header := make([]string, len(issueColumns))
	for i, c := range issueColumns {
		header[i] = c.title
	}
	lines := make([]string, 0, rowLimit+4)
	lines = append(lines, drawBorder("┌", "┬", "┐", widths))
	lines = append(lines, drawHeader(header, widths, theme))
	lines = append(lines, drawBorder("├", "┼", "┤", widths))
	for i := start; i < end; i++ {
		lines = append(lines, drawIssueRow(t.rows[i], widths, i == t.cursor, theme))
	}
	blank := make([]string, len(widths))
	for i := end; i < start+rowLimit; i++ {
		lines = append(lines, drawCells(blank, widths, nil, lipgloss.NewStyle()))
	}
	lines = append(lines, drawBorder("└", "┴", "┘", widths))
	return strings.Join(lines, "\n")
}

func stateGlyph(state string) string {
	switch state {
	case "open":
		return "open"
	case "closed":
		return "done"
	default:
		return "?"
	}
}

func drawBorder(left, mid, right string, widths []int) string {
	parts := make([]string, 0, len(widths)+2)
	parts = append(parts, left)
	for i, w := range widths {
		parts = append(parts, strings.Repeat("─", w))
		if i != len(widths)-1 {
			parts = append(parts, mid)
		}
	}
	parts = append(parts, right)
	return strings.Join(parts, "")
}

func drawHeader(values []string, widths []int, theme UITheme) string {
	return drawCells(values, widths, nil, fg(theme.TableHeader).Bold(true))
}

func drawIssueRow(row issues.ViewModel, widths []int, selected bool, theme UITheme) string {
	values := []string{
		fmt.Sprintf("#%d", row.Number),
		stateGlyph(row.State),
		row.Title,
		strings.Join(row.Labels, ","),
		strings.Join(row.Assignees, ","),
		row.UpdatedAt,
	}
	if selected {
		sel := lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.SelectionFg)).
			Background(lipgloss.Color(theme.SelectionBg))
		return drawCells(values, widths, nil, sel)
	}
	styles := []lipgloss.Style{
		fg(theme.ColNumber),
		fg(stateColor(row.State, theme)),
		fg(theme.ColTitle),
		fg(theme.ColLabels),
		fg(theme.ColAssignees),
		fg(theme.ColUpdated),
	}
	return drawCells(values, widths, styles, lipgloss.NewStyle())
}

// drawCells pads each value to its column. A nil styles slice applies base to
// every cell.
func drawCells(values []string, widths []int, styles []lipgloss.Style, base lipgloss.Style) string {
	parts := make([]string, 0, len(widths)*2+1)
	parts = append(parts, "│")
	for i, w := range widths {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		cell := pad(truncate(v, w), w)
		style := base
		if styles != nil {
			style = styles[i]
		}
		parts = append(parts, style.Render(cell))
		if i != len(widths)-1 {
			parts = append(parts, "│")
		}
	}
	parts = append(parts, "│")
	return strings.Join(parts, "")
}

func allocateColumnWidths(total int, cols []columnSpec) []int {
	if total < 10 {
		total = 10
	}
	remaining := total - (len(cols) - 1)
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = c.min
		remaining -= c.min
	}
	for remaining > 0 {
		changed := false
		for i, c := range cols {
			if remaining == 0 {
				break
			}
			if c.weight == 0 || widths[i] >= c.max {
				continue
			}
			step := min(c.weight, remaining, c.max-widths[i])
			widths[i] += step
			remaining -= step
			changed = true
		}
		if !changed {
			break
		}
	}
	return widths
}

func truncate(s string, width int) string {
	return clip(strings.TrimSpace(s), width)
}

// clip cuts s to width cells and marks the cut with "~".
func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "~")
}

func clampInt(v, lo, hi int) int {
	return max(min(v, hi), lo)
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
