package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"gh-issues/internal/issues"
	"gh-issues/internal/panel"
)

type editorMode int

const (
	editorClosed editorMode = iota
	editorCreate
	editorEdit
)

type editorField int

const (
	fieldTitle editorField = iota
	fieldBody
	fieldLabels
	fieldAssignees
	fieldCount
)

// chipSet is a multi-select over metadata options. Selected values that are
// not among the options stay listed so they can still be toggled off.
type chipSet struct {
	options  []string
	selected map[string]bool
	cursor   int
}

func newChipSet(options, selected []string) chipSet {
	c := chipSet{selected: map[string]bool{}}
	for _, v := range selected {
		c.selected[v] = true
	}
	c.options = selected
	c.setOptions(options)
	return c
}

func (c *chipSet) setOptions(options []string) {
	extras := c.values()
	merged := make([]string, 0, len(options)+len(extras))
	seen := map[string]bool{}
	for _, o := range append(append([]string(nil), options...), extras...) {
		if !seen[o] {
			seen[o] = true
			merged = append(merged, o)
		}
	}
	c.options = merged
	c.cursor = clampInt(c.cursor, 0, max(len(c.options)-1, 0))
}

func (c *chipSet) move(delta int) {
	if len(c.options) == 0 {
		return
	}
	c.cursor = clampInt(c.cursor+delta, 0, len(c.options)-1)
}

func (c *chipSet) toggle() {
	if c.cursor < 0 || c.cursor >= len(c.options) {
		return
	}
	v := c.options[c.cursor]
	if c.selected[v] {
		delete(c.selected, v)
	} else {
		c.selected[v] = true
	}
}

func (c chipSet) values() []string {
	out := make([]string, 0, len(c.selected))
	for _, o := range c.options {
		if c.selected[o] {
			out = append(out, o)
		}
	}
	return out
}

func (c chipSet) render(focused bool) string {
	if len(c.options) == 0 {
		return "(none available)"
	}
	parts := make([]string, 0, len(c.options))
	for i, o := range c.options {
		mark := "[ ]"
		if c.selected[o] {
			mark = "[x]"
		}
		item := mark + " " + o
		if focused && i == c.cursor {
			item = "›" + item
		} else {
			item = " " + item
		}
		parts = append(parts, item)
	}
	return strings.Join(parts, "  ")
}

type editorState struct {
	mode      editorMode
	number    int
	focus     editorField
	title     textinput.Model
	body      textarea.Model
	labels    chipSet
	assignees chipSet
	saving    bool
}

func newEditor() editorState {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 256
	title.Cursor.SetMode(cursor.CursorStatic)

	body := textarea.New()
	body.Placeholder = "Describe the issue (markdown)"
	body.ShowLineNumbers = false
	body.CharLimit = 0
	body.Cursor.SetMode(cursor.CursorStatic)

	return editorState{
		title:     title,
		body:      body,
		labels:    newChipSet(nil, nil),
		assignees: newChipSet(nil, nil),
	}
}

func (e editorState) open() bool { return e.mode != editorClosed }

func (e *editorState) openCreate(meta panel.Meta) {
	e.reset()
	e.mode = editorCreate
	e.labels = newChipSet(meta.Labels, nil)
	e.assignees = newChipSet(meta.Assignees, nil)
	e.setFocus(fieldTitle)
}

func (e *editorState) openEdit(issue issues.EditorModel, meta panel.Meta) {
	e.reset()
	e.mode = editorEdit
	e.number = issue.Number
	e.title.SetValue(issue.Title)
	e.body.SetValue(issue.Body)
	e.labels = newChipSet(meta.Labels, issue.Labels)
	e.assignees = newChipSet(meta.Assignees, issue.Assignees)
	e.setFocus(fieldTitle)
}

func (e *editorState) applyMeta(meta panel.Meta) {
	e.labels.setOptions(meta.Labels)
	e.assignees.setOptions(meta.Assignees)
}

func (e *editorState) close() {
	e.reset()
	e.mode = editorClosed
}

func (e *editorState) reset() {
	e.number = 0
	e.saving = false
	e.title.Reset()
	e.body.Reset()
	e.labels = newChipSet(nil, nil)
	e.assignees = newChipSet(nil, nil)
}

func (e *editorState) setFocus(f editorField) {
	e.focus = (f + fieldCount) % fieldCount
	e.title.Blur()
	e.body.Blur()
	switch e.focus {
	case fieldTitle:
		e.title.Focus()
	case fieldBody:
		e.body.Focus()
	}
}

// intent builds the save intent for the current mode.
func (e editorState) intent() panel.Intent {
	title := e.title.Value()
	body := e.body.Value()
	labels := panel.List(e.labels.values())
	assignees := panel.List(e.assignees.values())
	if e.mode == editorEdit {
		return panel.UpdateIssue{Number: e.number, Title: title, Body: body, Labels: labels, Assignees: assignees}
	}
	return panel.CreateIssue{Title: title, Body: body, Labels: labels, Assignees: assignees}
}

func (e *editorState) updateField(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch e.focus {
	case fieldTitle:
		e.title, cmd = e.title.Update(msg)
	case fieldBody:
		e.body, cmd = e.body.Update(msg)
	}
	return cmd
}

func (e *editorState) chips() *chipSet {
	switch e.focus {
	case fieldLabels:
		return &e.labels
	case fieldAssignees:
		return &e.assignees
	}
	return nil
}

func (e editorState) heading() string {
	if e.mode == editorEdit {
		return fmt.Sprintf("Edit issue #%d", e.number)
	}
	return "New issue"
}

func (e editorState) view(width int, theme UITheme) []string {
	inner := paneInner(width)
	e.title.Width = inner - 2
	e.body.SetWidth(inner)
	e.body.SetHeight(8)
	label := func(f editorField, name string) string {
		if e.focus == f {
			return fg(theme.PaneBorderActive).Bold(true).Render("> " + name)
		}
		return fg(theme.DetailsLabel).Render("  " + name)
	}
	lines := []string{
		fg(theme.HeaderText).Bold(true).Render(e.heading()),
		"",
		label(fieldTitle, "Title"),
		e.title.View(),
		label(fieldBody, "Body"),
	}
	lines = append(lines, strings.Split(e.body.View(), "\n")...)
	lines = append(lines,
		label(fieldLabels, "Labels"),
		fg(theme.ColLabels).Render(clip(e.labels.render(e.focus == fieldLabels), inner)),
		label(fieldAssignees, "Assignees"),
		fg(theme.ColAssignees).Render(clip(e.assignees.render(e.focus == fieldAssignees), inner)),
	)
	if e.saving {
		lines = append(lines, "", fg(theme.StatusText).Render("Saving..."))
	}
	return lines
}
