package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type listKeys struct {
	Up        key.Binding
	Down      key.Binding
	Refresh   key.Binding
	Search    key.Binding
	Clear     key.Binding
	Filter    key.Binding
	New       key.Binding
	Edit      key.Binding
	Toggle    key.Binding
	Open      key.Binding
	Copy      key.Binding
	Summary   key.Binding
	Repo      key.Binding
	AuthMode  key.Binding
	Token     key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

type editorKeys struct {
	Next   key.Binding
	Prev   key.Binding
	Toggle key.Binding
	Left   key.Binding
	Right  key.Binding
	Save   key.Binding
	Attach key.Binding
	Cancel key.Binding
}

type promptKeys struct {
	Submit key.Binding
	Cancel key.Binding
	Up     key.Binding
	Down   key.Binding
}

type keyMap struct {
	list   listKeys
	editor editorKeys
	prompt promptKeys
}

func defaultKeyMap() keyMap {
	return keyMap{
		list: listKeys{
			Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("j/k", "move")),
			Down:      key.NewBinding(key.WithKeys("j", "down")),
			Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
			Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
			Clear:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear search")),
			Filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
			New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
			Edit:      key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit")),
			Toggle:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close/reopen")),
			Open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
			Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
			Summary:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "summary")),
			Repo:      key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "repo")),
			AuthMode:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auth mode")),
			Token:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "token")),
			Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
			ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
		},
		editor: editorKeys{
			Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
			Prev:   key.NewBinding(key.WithKeys("shift+tab")),
			Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
			Left:   key.NewBinding(key.WithKeys("left", "h")),
			Right:  key.NewBinding(key.WithKeys("right", "l")),
			Save:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
			Attach: key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "attach image")),
			Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
		prompt: promptKeys{
			Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
			Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
			Up:     key.NewBinding(key.WithKeys("up")),
			Down:   key.NewBinding(key.WithKeys("down")),
		},
	}
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, ", ")
}

func (k listKeys) help() string {
	return helpLine(k.Up, k.Refresh, k.Search, k.Clear, k.Filter, k.New, k.Edit, k.Toggle, k.Open, k.Copy, k.Summary, k.Repo, k.AuthMode, k.Token, k.Quit)
}

func (k editorKeys) help() string {
	return helpLine(k.Next, k.Toggle, k.Save, k.Attach, k.Cancel)
}
