package tui

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"

	"gh-issues/internal/logging"
	"gh-issues/internal/panel"
	"gh-issues/internal/upload"
)

const autoRepo = "__auto__"

// Controller is the side of the panel protocol the view talks to.
type Controller interface {
	Attach(s panel.Sink)
	Detach()
	Handle(ctx context.Context, intent panel.Intent)
}

type Options struct {
	Theme   UITheme
	Version string
	Logger  *slog.Logger
}

type programSink struct {
	p *tea.Program
}

func (s programSink) Post(msg panel.Message) {
	s.p.Send(msg)
}

// Run shows the issue view until the user quits.
func Run(ctx context.Context, ctrl Controller, opts Options) error {
	m := newModel(ctx, ctrl, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	ctrl.Attach(programSink{p: p})
	defer ctrl.Detach()
	_, err := p.Run()
	return err
}

type promptKind int

const (
	promptNone promptKind = iota
	promptSearch
	promptRepo
	promptToken
	promptAttach
)

type promptState struct {
	kind    promptKind
	input   textinput.Model
	choices []string
	choice  int
}

type docView struct {
	title    string
	markdown string
	scroll   int
}

type attachmentMsg struct {
	name string
	mime string
	data string
	err  error
}

type Model struct {
	ctx     context.Context
	ctrl    Controller
	logger  *slog.Logger
	keys    keyMap
	theme   UITheme
	version string
	width   int
	height  int

	snap       panel.Render
	loaded     bool
	table      issueTable
	editor     editorState
	meta       panel.Meta
	metaLoaded bool
	// request id -> file name
	pendingUploads map[string]string
	prompt         promptState
	doc            *docView
	status         string
	statusErr      bool
	quitting       bool

	newID    func() string
	readFile func(string) ([]byte, error)
}

func newModel(ctx context.Context, ctrl Controller, opts Options) Model {
	return Model{
		ctx:            ctx,
		ctrl:           ctrl,
		logger:         logging.OrDiscard(opts.Logger).With("component", "tui"),
		keys:           defaultKeyMap(),
		theme:          withDefaults(opts.Theme),
		version:        opts.Version,
		editor:         newEditor(),
		pendingUploads: map[string]string{},
		status:         "Loading...",
		newID:          uuid.NewString,
		readFile:       os.ReadFile,
	}
}

func (m Model) send(intent panel.Intent) tea.Cmd {
	ctx, ctrl, logger := m.ctx, m.ctrl, m.logger
	return func() tea.Msg {
		logger.Debug("intent", "type", panel.IntentType(intent))
		ctrl.Handle(ctx, intent)
		return nil
	}
}

func (m Model) Init() tea.Cmd {
	return m.send(panel.Ready{})
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = "Error: " + s
	m.statusErr = true
}

// needMeta reports whether labels and assignees must be fetched for the
// repository currently shown.
func (m Model) needMeta() bool {
	return !m.metaLoaded || m.meta.Repo != m.snap.Repo
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// header, help and status lines sit above the body
		m.table.setHeight(max(msg.Height-3, 6))
		return m, nil
	case panel.Render:
		m.snap = msg
		m.loaded = true
		m.table.setRows(msg.Issues)
		if msg.Status == panel.StatusOK && !m.statusErr && m.status == "Loading..." {
			m.setStatus("Ready")
		}
		return m, nil
	case panel.Meta:
		m.meta = msg
		m.metaLoaded = true
		if m.editor.open() {
			m.editor.applyMeta(msg)
		}
		return m, nil
	case panel.EditData:
		m.meta = msg.Meta
		m.metaLoaded = true
		m.editor.openEdit(msg.Issue, msg.Meta)
		m.setStatus(fmt.Sprintf("Editing #%d", msg.Issue.Number))
		return m, nil
	case panel.IssueSaved:
		// A late acknowledgment must not close a form opened after cancel.
		if m.editor.saving {
			m.editor.close()
		}
		if msg.Mode == panel.SavedEdit {
			m.setStatus("Issue updated")
		} else {
			m.setStatus("Issue created")
		}
		return m, nil
	case panel.ImageUploaded:
		name, ok := m.pendingUploads[msg.RequestID]
		if !ok {
			return m, nil
		}
		delete(m.pendingUploads, msg.RequestID)
		if m.editor.open() {
			m.editor.body.InsertString(msg.Markdown)
		}
		m.setStatus("Uploaded " + name)
		return m, nil
	case panel.ImageUploadError:
		name, ok := m.pendingUploads[msg.RequestID]
		if !ok {
			return m, nil
		}
		delete(m.pendingUploads, msg.RequestID)
		m.setError(fmt.Sprintf("upload of %s failed: %s", name, msg.Message))
		return m, nil
	case panel.ErrorNotice:
		m.editor.saving = false
		m.setError(msg.Message)
		return m, nil
	case panel.Notice:
		m.setStatus(msg.Message)
		return m, nil
	case panel.Document:
		m.doc = &docView{title: msg.Title, markdown: msg.Markdown}
		return m, nil
	case attachmentMsg:
		if msg.err != nil {
			m.setError(msg.err.Error())
			return m, nil
		}
		if !m.editor.open() {
			return m, nil
		}
		id := m.newID()
		m.pendingUploads[id] = msg.name
		m.setStatus("Uploading " + msg.name + "...")
		return m, m.send(panel.UploadImage{RequestID: id, Name: msg.name, MIME: msg.mime, Data: msg.data})
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.list.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		switch {
		case m.doc != nil:
			return m.updateDocument(msg)
		case m.prompt.kind != promptNone:
			return m.updatePrompt(msg)
		case m.editor.open():
			return m.updateEditor(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys.list
	current, hasCurrent := m.table.current()
	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, k.Up):
		m.table.moveCursor(-1)
	case key.Matches(msg, k.Down):
		m.table.moveCursor(1)
	case key.Matches(msg, k.Refresh):
		return m, m.send(panel.Refresh{})
	case key.Matches(msg, k.Search):
		m.openPrompt(promptSearch, m.snap.Search, nil)
	case key.Matches(msg, k.Clear):
		return m, m.send(panel.ClearSearch{})
	case key.Matches(msg, k.Filter):
		return m, m.send(panel.SetFilter{Value: string(m.snap.Filter.Next())})
	case key.Matches(msg, k.New):
		m.editor.openCreate(m.meta)
		if m.needMeta() {
			return m, m.send(panel.RequestMeta{})
		}
	case key.Matches(msg, k.Edit):
		if hasCurrent {
			m.setStatus(fmt.Sprintf("Loading #%d...", current.Number))
			return m, m.send(panel.LoadIssueForEdit{Number: current.Number})
		}
	case key.Matches(msg, k.Toggle):
		if hasCurrent {
			next := "closed"
			if current.State == "closed" {
				next = "open"
			}
			return m, m.send(panel.SetIssueState{Number: current.Number, State: next})
		}
	case key.Matches(msg, k.Open):
		if hasCurrent {
			return m, m.send(panel.OpenIssue{URL: current.HTMLURL})
		}
	case key.Matches(msg, k.Copy):
		if hasCurrent {
			return m, m.send(panel.CopyIssue{URL: current.HTMLURL})
		}
	case key.Matches(msg, k.Summary):
		if hasCurrent {
			return m, m.send(panel.SummaryIssue{Number: current.Number})
		}
	case key.Matches(msg, k.Repo):
		m.openPrompt(promptRepo, "", append([]string{autoRepo}, m.snap.RepoCandidates...))
	case key.Matches(msg, k.AuthMode):
		next := "pat"
		if m.snap.AuthMode == "pat" {
			next = "session"
		}
		return m, m.send(panel.SetAuthMode{Mode: next})
	case key.Matches(msg, k.Token):
		m.openPrompt(promptToken, "", nil)
	}
	return m, nil
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys.editor
	switch {
	case key.Matches(msg, k.Cancel):
		m.editor.close()
		m.setStatus("Edit cancelled")
		return m, nil
	case key.Matches(msg, k.Save):
		if m.editor.saving {
			return m, nil
		}
		m.editor.saving = true
		return m, m.send(m.editor.intent())
	case key.Matches(msg, k.Attach):
		m.openPrompt(promptAttach, "", nil)
		return m, nil
	case key.Matches(msg, k.Next):
		m.editor.setFocus(m.editor.focus + 1)
		return m, nil
	case key.Matches(msg, k.Prev):
		m.editor.setFocus(m.editor.focus - 1)
		return m, nil
	}
	if chips := m.editor.chips(); chips != nil {
		switch {
		case key.Matches(msg, k.Toggle):
			chips.toggle()
		case key.Matches(msg, k.Left):
			chips.move(-1)
		case key.Matches(msg, k.Right):
			chips.move(1)
		}
		return m, nil
	}
	return m, m.editor.updateField(msg)
}

func (m *Model) openPrompt(kind promptKind, seed string, choices []string) {
	in := textinput.New()
	in.CharLimit = 512
	in.Cursor.SetMode(cursor.CursorStatic)
	switch kind {
	case promptSearch:
		in.Placeholder = "search terms"
	case promptRepo:
		in.Placeholder = "owner/name (empty picks the highlighted entry)"
	case promptToken:
		in.Placeholder = "personal access token"
		in.EchoMode = textinput.EchoPassword
	case promptAttach:
		in.Placeholder = "path to image"
	}
	in.SetValue(seed)
	in.Focus()
	m.prompt = promptState{kind: kind, input: in, choices: choices}
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys.prompt
	switch {
	case key.Matches(msg, k.Cancel):
		m.prompt = promptState{}
		return m, nil
	case key.Matches(msg, k.Up) && len(m.prompt.choices) > 0:
		m.prompt.choice = clampInt(m.prompt.choice-1, 0, len(m.prompt.choices)-1)
		return m, nil
	case key.Matches(msg, k.Down) && len(m.prompt.choices) > 0:
		m.prompt.choice = clampInt(m.prompt.choice+1, 0, len(m.prompt.choices)-1)
		return m, nil
	case key.Matches(msg, k.Submit):
		p := m.prompt
		m.prompt = promptState{}
		return m, m.submitPrompt(p)
	}
	var cmd tea.Cmd
	m.prompt.input, cmd = m.prompt.input.Update(msg)
	return m, cmd
}

func (m *Model) submitPrompt(p promptState) tea.Cmd {
	value := strings.TrimSpace(p.input.Value())
	switch p.kind {
	case promptSearch:
		return m.send(panel.Search{Value: value})
	case promptRepo:
		if value == "" && p.choice < len(p.choices) {
			value = p.choices[p.choice]
		}
		return m.send(panel.SetRepo{Value: value})
	case promptToken:
		if value == "" {
			return nil
		}
		return m.send(panel.SetToken{Token: value})
	case promptAttach:
		if value == "" {
			return nil
		}
		return m.readAttachment(value)
	}
	return nil
}

func (m Model) readAttachment(path string) tea.Cmd {
	readFile := m.readFile
	return func() tea.Msg {
		b, err := readFile(path)
		if err != nil {
			return attachmentMsg{err: err}
		}
		return attachmentMsg{
			name: filepath.Base(path),
			mime: upload.DetectMIME(path, b),
			data: base64.StdEncoding.EncodeToString(b),
		}
	}
}

func (m Model) updateDocument(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "enter":
		m.doc = nil
	case "j", "down":
		m.doc.scroll++
	case "k", "up":
		if m.doc.scroll > 0 {
			m.doc.scroll--
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return "Exited.\n"
	}
	width, height := m.width, m.height
	if width <= 0 {
		width = 120
	}
	if height <= 0 {
		height = 36
	}

	help := m.keys.list.help()
	if m.editor.open() {
		help = m.keys.editor.help()
	}
	statusColor := m.theme.StatusText
	if m.statusErr {
		statusColor = m.theme.DangerText
	}
	out := []string{
		fg(m.theme.HeaderText).Bold(true).Render(clip(m.headerLine(), width)),
		fg(m.theme.HelpText).Render(clip(help, width)),
		fg(statusColor).Render(clip(m.statusLine(), width)),
	}
	bodyHeight := max(height-len(out), 6)
	out = append(out, m.renderBody(width, bodyHeight))
	view := strings.Join(out, "\n")

	if overlay := m.renderOverlay(width, height); overlay != "" {
		view = withModal(view, overlay, width, height)
	}
	return view + "\n"
}

func (m Model) headerLine() string {
	repo := m.snap.Repo
	if repo == "" {
		repo = "(none)"
	}
	parts := []string{
		"gh-issues " + formatVersionLabel(m.version),
		"repo: " + repo,
		"filter: " + string(m.snap.Filter),
	}
	if m.snap.Search != "" {
		parts = append(parts, "search: "+m.snap.Search)
	}
	if m.snap.AuthMode != "" {
		parts = append(parts, "auth: "+m.snap.AuthMode)
	}
	return strings.Join(parts, " | ")
}

func (m Model) statusLine() string {
	if len(m.pendingUploads) == 0 {
		return m.status
	}
	names := make([]string, 0, len(m.pendingUploads))
	for _, n := range m.pendingUploads {
		names = append(names, n)
	}
	sort.Strings(names)
	return m.status + " | uploading: " + strings.Join(names, ", ")
}

func (m Model) renderBody(width, height int) string {
	if m.editor.open() {
		return m.panelBox(m.editor.view(width, m.theme), width, height, true)
	}
	if !m.loaded {
		return m.panelBox([]string{"Loading issues..."}, width, height, false)
	}
	switch m.snap.Status {
	case panel.StatusNoRepo:
		return m.panelBox([]string{
			"No GitHub repository detected.",
			"",
			"Open a folder with a GitHub remote, or press R to pick one.",
		}, width, height, false)
	case panel.StatusNoAuth:
		lines := []string{"Not signed in to GitHub."}
		if m.snap.Reason != "" {
			lines = append(lines, "reason: "+m.snap.Reason)
		}
		lines = append(lines, "", "Press t to set a token or a to switch auth mode (current: "+m.snap.AuthMode+").")
		return m.panelBox(lines, width, height, false)
	case panel.StatusError:
		return m.panelBox([]string{
			fg(m.theme.DangerText).Render("Failed to load issues"),
			m.snap.Error,
			"",
			"Press r to retry.",
		}, width, height, false)
	}
	if len(m.snap.Issues) == 0 {
		return m.panelBox([]string{"No issues match the current filter."}, width, height, false)
	}

	leftWidth := max(width*2/3, 48)
	rightWidth := width - leftWidth - 1
	m.table.setHeight(height)
	left := m.table.render(leftWidth, m.theme)
	if rightWidth < 24 {
		return left
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", m.renderDetails(rightWidth, height))
}

func (m Model) renderDetails(width, height int) string {
	issue, ok := m.table.current()
	if !ok {
		return m.panelBox([]string{"No issue selected"}, width, height, false)
	}
	labels := strings.Join(issue.Labels, ", ")
	if labels == "" {
		labels = "none"
	}
	assignees := strings.Join(issue.Assignees, ", ")
	if assignees == "" {
		assignees = "none"
	}
	lines := []string{
		fmt.Sprintf("#%d %s", issue.Number, issue.Title),
		"state: " + issue.State,
		"author: " + issue.User,
		"updated: " + issue.UpdatedAt,
		"labels: " + labels,
		"assignees: " + assignees,
		"url: " + issue.HTMLURL,
	}
	lines = fitPane(wrapAll(lines, paneInner(width)), paneRows(height))
	for i := range lines {
		if i == 0 {
			lines[i] = fg(m.theme.ColTitle).Bold(true).Render(lines[i])
			continue
		}
		lines[i] = colorizeDetailLine(lines[i], m.theme)
	}
	return m.panelBox(lines, width, height, false)
}

func (m Model) panelBox(lines []string, width, height int, active bool) string {
	border := m.theme.PaneBorderInactive
	if active {
		border = m.theme.PaneBorderActive
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(0, 1).
		Width(width - 2).
		Render(strings.Join(fitPane(lines, paneRows(height)), "\n"))
}

// paneInner is the text width inside a bordered, padded pane.
func paneInner(width int) int { return max(width-4, 1) }

func paneRows(height int) int { return max(height-2, 1) }

// fitPane returns exactly rows lines. Overflow is replaced by a "~" marker
// on the last row.
func fitPane(lines []string, rows int) []string {
	out := make([]string, rows)
	copy(out, lines)
	if len(lines) > rows && rows > 1 {
		out[rows-1] = "~"
	}
	return out
}

// withModal draws box centered over a faint, uncoloured copy of base.
func withModal(base, box string, width, height int) string {
	rows := strings.Split(ansi.Strip(base), "\n")
	if len(rows) > height {
		rows = rows[:height]
	}
	for len(rows) < height {
		rows = append(rows, "")
	}
	boxRows := strings.Split(box, "\n")
	boxW := lipgloss.Width(box)
	top := max((height-len(boxRows))/2, 0)
	left := max((width-boxW)/2, 0)
	faint := lipgloss.NewStyle().Faint(true)
	for i, row := range rows {
		row = pad(row, width)
		j := i - top
		if j < 0 || j >= len(boxRows) {
			rows[i] = faint.Render(row)
			continue
		}
		rows[i] = faint.Render(ansi.Truncate(row, left, "")) + boxRows[j] + faint.Render(ansi.TruncateLeft(row, left+boxW, ""))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderOverlay(width, height int) string {
	boxWidth := clampInt(width-6, 36, 96)
	inner := paneInner(boxWidth)
	var title string
	var lines []string
	switch {
	case m.doc != nil:
		title = m.doc.title
		body := renderMarkdown(m.doc.markdown, inner, m.theme)
		limit := max(height-8, 4)
		start := clampInt(m.doc.scroll, 0, max(len(body)-limit, 0))
		end := min(start+limit, len(body))
		lines = append(lines, body[start:end]...)
		lines = append(lines, "", fg(m.theme.HelpText).Render("j/k scroll, esc close"))
	case m.prompt.kind != promptNone:
		title = promptTitle(m.prompt.kind)
		p := m.prompt
		p.input.Width = inner - 2
		lines = append(lines, p.input.View())
		for i, c := range p.choices {
			label := c
			if c == autoRepo {
				label = "auto-detect from git remotes"
			}
			if i == p.choice {
				lines = append(lines, lipgloss.NewStyle().
					Foreground(lipgloss.Color(m.theme.SelectionFg)).
					Background(lipgloss.Color(m.theme.SelectionBg)).
					Render("> "+clip(label, inner-2)))
			} else {
				lines = append(lines, "  "+clip(label, inner-2))
			}
		}
		lines = append(lines, "", fg(m.theme.HelpText).Render("enter submit, esc cancel"))
	default:
		return ""
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(m.theme.PopupBorder)).
		Padding(0, 1).
		Width(boxWidth).
		Render(fg(m.theme.HeaderText).Bold(true).Render(title) + "\n" + strings.Join(lines, "\n"))
}

func promptTitle(k promptKind) string {
	switch k {
	case promptSearch:
		return "Search issues"
	case promptRepo:
		return "Repository"
	case promptToken:
		return "GitHub token"
	case promptAttach:
		return "Attach image"
	}
	return ""
}

func formatVersionLabel(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return "vdev"
	}
	if strings.HasPrefix(trimmed, "v") {
		return trimmed
	}
	return "v" + trimmed
}
