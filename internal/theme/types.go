package theme

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

type Hex string

// PaletteHex holds one colour per UI role. Keys match the theme file format.
type PaletteHex struct {
	PaneBorderActive   Hex `json:"pane_border_active"`
	PaneBorderInactive Hex `json:"pane_border_inactive"`
	PopupBorder        Hex `json:"popup_border"`
	Danger             Hex `json:"danger"`
	DangerText         Hex `json:"danger_text"`
	Success            Hex `json:"success"`
	TextPrimary        Hex `json:"text_primary"`
	TextMuted          Hex `json:"text_muted"`
	SelectionBg        Hex `json:"selection_bg"`
	SelectionFg        Hex `json:"selection_fg"`
	HeaderText         Hex `json:"header_text"`
	HelpText           Hex `json:"help_text"`
	StatusText         Hex `json:"status_text"`
	TableHeader        Hex `json:"table_header"`
	ColNumber          Hex `json:"col_number"`
	ColTitle           Hex `json:"col_title"`
	ColLabels          Hex `json:"col_labels"`
	ColAssignees       Hex `json:"col_assignees"`
	ColUpdated         Hex `json:"col_updated"`
	StateOpen          Hex `json:"state_open"`
	StateClosed        Hex `json:"state_closed"`
	DetailsLabel       Hex `json:"details_label"`
	DetailsValue       Hex `json:"details_value"`
	Link               Hex `json:"link"`
}

type role struct {
	key string
	hex *Hex
}

func (p *PaletteHex) roles() []role {
	return []role{
		{"pane_border_active", &p.PaneBorderActive},
		{"pane_border_inactive", &p.PaneBorderInactive},
		{"popup_border", &p.PopupBorder},
		{"danger", &p.Danger},
		{"danger_text", &p.DangerText},
		{"success", &p.Success},
		{"text_primary", &p.TextPrimary},
		{"text_muted", &p.TextMuted},
		{"selection_bg", &p.SelectionBg},
		{"selection_fg", &p.SelectionFg},
		{"header_text", &p.HeaderText},
		{"help_text", &p.HelpText},
		{"status_text", &p.StatusText},
		{"table_header", &p.TableHeader},
		{"col_number", &p.ColNumber},
		{"col_title", &p.ColTitle},
		{"col_labels", &p.ColLabels},
		{"col_assignees", &p.ColAssignees},
		{"col_updated", &p.ColUpdated},
		{"state_open", &p.StateOpen},
		{"state_closed", &p.StateClosed},
		{"details_label", &p.DetailsLabel},
		{"details_value", &p.DetailsValue},
		{"link", &p.Link},
	}
}

type ThemeFile struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Version int               `json:"version"`
	Vars    map[string]string `json:"vars,omitempty"`
	Colors  PaletteHex        `json:"colors"`
}

// PaletteResolved holds colours ready for lipgloss.Color: hex on truecolor
// terminals, xterm-256 indices otherwise.
type PaletteResolved struct {
	PaneBorderActive   string
	PaneBorderInactive string
	PopupBorder        string
	Danger             string
	DangerText         string
	Success            string
	TextPrimary        string
	TextMuted          string
	SelectionBg        string
	SelectionFg        string
	HeaderText         string
	HelpText           string
	StatusText         string
	TableHeader        string
	ColNumber          string
	ColTitle           string
	ColLabels          string
	ColAssignees       string
	ColUpdated         string
	StateOpen          string
	StateClosed        string
	DetailsLabel       string
	DetailsValue       string
	Link               string
}

// roles lists the fields in the same order as PaletteHex.roles.
func (p *PaletteResolved) roles() []*string {
	return []*string{
		&p.PaneBorderActive, &p.PaneBorderInactive, &p.PopupBorder,
		&p.Danger, &p.DangerText, &p.Success,
		&p.TextPrimary, &p.TextMuted, &p.SelectionBg, &p.SelectionFg,
		&p.HeaderText, &p.HelpText, &p.StatusText, &p.TableHeader,
		&p.ColNumber, &p.ColTitle, &p.ColLabels, &p.ColAssignees, &p.ColUpdated,
		&p.StateOpen, &p.StateClosed, &p.DetailsLabel, &p.DetailsValue, &p.Link,
	}
}

var (
	hexRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	varRe = regexp.MustCompile(`^var\(--([A-Za-z0-9_-]+)\)$`)
)

func (p PaletteHex) Validate() error {
	for _, r := range p.roles() {
		if !hexRe.MatchString(string(*r.hex)) {
			return fmt.Errorf("invalid hex color for %s: %q", r.key, string(*r.hex))
		}
	}
	return nil
}

// ParseThemeFile decodes a theme, fills roles it omits from the default
// palette and expands var(--name) references against its vars block.
func ParseThemeFile(b []byte) (ThemeFile, error) {
	t := ThemeFile{
		Version: 1,
		Colors:  DefaultPaletteHex(),
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return ThemeFile{}, err
	}
	if t.ID == "" {
		return ThemeFile{}, fmt.Errorf("theme id is required")
	}
	if t.Version == 0 {
		t.Version = 1
	}
	for _, r := range t.Colors.roles() {
		v, err := expand(string(*r.hex), t.Vars, nil)
		if err != nil {
			return ThemeFile{}, fmt.Errorf("%s: %w", r.key, err)
		}
		*r.hex = Hex(v)
	}
	if err := t.Colors.Validate(); err != nil {
		return ThemeFile{}, err
	}
	return t, nil
}

func expand(value string, vars map[string]string, seen []string) (string, error) {
	if !strings.HasPrefix(value, "var(") {
		return value, nil
	}
	m := varRe.FindStringSubmatch(value)
	if m == nil {
		return "", fmt.Errorf("invalid color variable reference %q", value)
	}
	name := m[1]
	for _, s := range seen {
		if s == name {
			return "", fmt.Errorf("circular variable reference: %s", strings.Join(append(seen, name), " -> "))
		}
	}
	next, ok := vars[name]
	if !ok {
		return "", fmt.Errorf("unknown color variable %q", name)
	}
	return expand(next, vars, append(seen, name))
}

func DefaultPaletteHex() PaletteHex {
	return PaletteHex{
		PaneBorderActive:   "#fff67d",
		PaneBorderInactive: "#585858",
		PopupBorder:        "#fff67d",
		Danger:             "#d70000",
		DangerText:         "#ff5f5f",
		Success:            "#5fd75f",
		TextPrimary:        "#ddd7c1",
		TextMuted:          "#9e9987",
		SelectionBg:        "#fff67d",
		SelectionFg:        "#000000",
		HeaderText:         "#efe8ca",
		HelpText:           "#d8cfaa",
		StatusText:         "#fff67d",
		TableHeader:        "#fff1a6",
		ColNumber:          "#dcca91",
		ColTitle:           "#f7e4a3",
		ColLabels:          "#c7b3e6",
		ColAssignees:       "#9fd0d0",
		ColUpdated:         "#d6d1b3",
		StateOpen:          "#5fd75f",
		StateClosed:        "#af87ff",
		DetailsLabel:       "#dcca91",
		DetailsValue:       "#d8d1b2",
		Link:               "#87afff",
	}
}
