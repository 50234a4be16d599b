package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"gh-issues/internal/auth"
	"gh-issues/internal/config"
	"gh-issues/internal/doctor"
	"gh-issues/internal/issues"
	"gh-issues/internal/repo"
	"gh-issues/internal/tui"
	"gh-issues/internal/upload"
)

type command func(ctx context.Context, e *env, args []string) error

func lookup(name string) (command, bool) {
	switch name {
	case "list":
		return runList, true
	case "create":
		return runCreate, true
	case "edit":
		return runEdit, true
	case "close":
		return stateCommand("closed"), true
	case "reopen":
		return stateCommand("open"), true
	case "assign":
		return runAssign, true
	case "pr":
		return runPull, true
	case "upload":
		return runUpload, true
	case "summary":
		return runSummary, true
	case "repo":
		return runRepo, true
	case "auth":
		return runAuth, true
	case "doctor":
		return runDoctor, true
	}
	return nil, false
}

func newFlagSet(e *env, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.std.err)
	return fs
}

// parse reports done=true when the user only asked for help.
func parse(fs *pflag.FlagSet, args []string) (done bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func runList(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "list")
	st := e.store.State()
	filterFlag := fs.String("filter", orDefault(st.Filter, e.store.Config().DefaultIssueFilter), "open, closed or all")
	search := fs.String("search", st.Search, "search query within the repository")
	output := fs.StringP("output", "o", "table", "table, json or yaml")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	filter, ok := issues.ParseFilter(*filterFlag)
	if !ok {
		return fmt.Errorf("invalid --filter %q (want open, closed or all)", *filterFlag)
	}
	t, err := e.service.Target(ctx)
	if err != nil {
		return err
	}
	list, err := e.service.Fetch(ctx, t, filter, strings.TrimSpace(*search))
	if err != nil {
		return err
	}
	rows := issues.ToViewModels(list, time.Local)

	switch *output {
	case "json":
		b, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(e.std.out, string(b))
	case "yaml":
		b, err := yaml.Marshal(rows)
		if err != nil {
			return err
		}
		fmt.Fprint(e.std.out, string(b))
	case "table":
		if len(rows) == 0 {
			fmt.Fprintf(e.std.out, "No %s issues in %s.\n", filter, t.Repo)
			return nil
		}
		fmt.Fprintln(e.std.out, issueTable(rows))
	default:
		return fmt.Errorf("invalid --output %q (want table, json or yaml)", *output)
	}
	return nil
}

func issueTable(rows []issues.ViewModel) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "STATE", "TITLE", "LABELS", "ASSIGNEES", "UPDATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, vm := range rows {
		t.Row(
			strconv.Itoa(vm.Number),
			vm.State,
			vm.Title,
			strings.Join(vm.Labels, ", "),
			strings.Join(vm.Assignees, ", "),
			vm.UpdatedAt,
		)
	}
	return t.Render()
}

type fieldFlags struct {
	title     *string
	body      *string
	bodyFile  *string
	labels    *[]string
	assignees *[]string
}

func addFieldFlags(fs *pflag.FlagSet) fieldFlags {
	return fieldFlags{
		title:     fs.StringP("title", "t", "", "issue title"),
		body:      fs.StringP("body", "b", "", "issue body (markdown)"),
		bodyFile:  fs.String("body-file", "", "read the body from a file, - for stdin"),
		labels:    fs.StringArrayP("labels", "l", nil, "labels, comma separated or repeated"),
		assignees: fs.StringArrayP("assignees", "a", nil, "assignee logins, comma separated or repeated"),
	}
}

func (f fieldFlags) readBody(e *env) (string, error) {
	switch *f.bodyFile {
	case "":
		return *f.body, nil
	case "-":
		b, err := io.ReadAll(e.std.in)
		return string(b), err
	default:
		b, err := os.ReadFile(*f.bodyFile)
		return string(b), err
	}
}

func runCreate(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "create")
	ff := addFieldFlags(fs)
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	body, err := ff.readBody(e)
	if err != nil {
		return err
	}
	fields, err := issues.Fields{
		Title:     *ff.title,
		Body:      body,
		Labels:    *ff.labels,
		Assignees: *ff.assignees,
	}.Normalize()
	if err != nil {
		return err
	}
	t, err := e.service.Target(ctx)
	if err != nil {
		return err
	}
	issue, err := e.service.Create(ctx, t, fields)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.std.out, "Created #%d %s\n", issue.Number, issue.HTMLURL)
	return nil
}

// runEdit only changes the fields that were passed; the rest are read back
// from the current issue.
func runEdit(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "edit")
	number := fs.IntP("number", "n", 0, "issue number")
	ff := addFieldFlags(fs)
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	if *number <= 0 {
		return errors.New("edit requires --number")
	}
	t, err := e.service.Target(ctx)
	if err != nil {
		return err
	}
	current, err := e.service.Get(ctx, t, *number)
	if err != nil {
		return err
	}
	fields := issues.Fields{
		Title:     current.Title,
		Body:      current.Body,
		Labels:    current.LabelNames(),
		Assignees: current.AssigneeLogins(),
	}
	if fs.Changed("title") {
		fields.Title = *ff.title
	}
	if fs.Changed("body") || fs.Changed("body-file") {
		if fields.Body, err = ff.readBody(e); err != nil {
			return err
		}
	}
	if fs.Changed("labels") {
		fields.Labels = *ff.labels
	}
	if fs.Changed("assignees") {
		fields.Assignees = *ff.assignees
	}
	if fields, err = fields.Normalize(); err != nil {
		return err
	}
	issue, err := e.service.Update(ctx, t, *number, fields)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.std.out, "Updated #%d %s\n", issue.Number, issue.HTMLURL)
	return nil
}

func stateCommand(state string) command {
	return func(ctx context.Context, e *env, args []string) error {
		verb := map[string]string{"closed": "close", "open": "reopen"}[state]
		if len(args) != 1 {
			return fmt.Errorf("usage: gh-issues %s N", verb)
		}
		number, err := issueNumber(args[0])
		if err != nil {
			return err
		}
		t, err := e.service.Target(ctx)
		if err != nil {
			return err
		}
		issue, err := e.service.SetState(ctx, t, number, state)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.std.out, "#%d is now %s\n", issue.Number, issue.State)
		return nil
	}
}

func runAssign(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "assign")
	number := fs.IntP("number", "n", 0, "issue number")
	assignees := fs.StringArrayP("assignees", "a", nil, "assignee logins, comma separated or repeated")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	if *number <= 0 {
		return errors.New("assign requires --number")
	}
	logins := issues.NormalizeList(*assignees...)
	if len(logins) == 0 {
		return errors.New("assign requires at least one --assignees login")
	}
	t, err := e.service.Target(ctx)
	if err != nil {
		return err
	}
	issue, err := e.service.Assign(ctx, t, *number, logins)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.std.out, "#%d assignees: %s\n", issue.Number, strings.Join(issue.AssigneeLogins(), ", "))
	return nil
}

func runPull(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "pr")
	title := fs.StringP("title", "t", "", "pull request title")
	head := fs.String("head", "", "branch with the changes")
	base := fs.String("base", "", "branch to merge into (default from config)")
	body := fs.StringP("body", "b", "", "pull request body")
	draft := fs.Bool("draft", false, "open as a draft")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	t, err := e.service.Target(ctx)
	if err != nil {
		return err
	}
	pr, err := e.service.CreatePull(ctx, t, issues.PullFields{
		Title: *title,
		Head:  *head,
		Base:  *base,
		Body:  *body,
		Draft: *draft,
	}, e.store.Config().DefaultBaseBranch)
	if err != nil {
		return err
	}
	kind := "pull request"
	if pr.Draft {
		kind = "draft pull request"
	}
	fmt.Fprintf(e.std.out, "Created %s #%d %s\n", kind, pr.Number, pr.HTMLURL)
	return nil
}

func runUpload(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "upload")
	file := fs.StringP("file", "f", "", "image to upload")
	name := fs.String("name", "", "file name to record (default: base name of --file)")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	if *file == "" {
		return errors.New("upload requires --file")
	}
	b, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	if *name == "" {
		*name = filepath.Base(*file)
	}
	p := e.pipeline()
	prep, err := p.Prepare(upload.Request{
		Name: *name,
		MIME: upload.DetectMIME(*file, b),
		Data: base64.StdEncoding.EncodeToString(b),
	})
	if err != nil {
		return err
	}
	t, err := e.service.Target(ctx)
	if err != nil {
		return err
	}
	res, err := p.Upload(ctx, t.Token, t.Repo, prep)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.std.out, res.Markdown)
	return nil
}

// runSummary prints the same document the panel shows, styled when stdout is
// a terminal and as plain markdown otherwise.
func runSummary(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: gh-issues summary N")
	}
	number, err := issueNumber(args[0])
	if err != nil {
		return err
	}
	t, err := e.service.Target(ctx)
	if err != nil {
		return err
	}
	issue, err := e.service.Get(ctx, t, number)
	if err != nil {
		return err
	}
	md := issues.SummaryMarkdown(issue, time.Local)
	if width, ok := terminalWidth(e); ok {
		fmt.Fprintln(e.std.out, tui.RenderMarkdown(md, width, e.theme()))
		return nil
	}
	fmt.Fprint(e.std.out, md)
	return nil
}

func runRepo(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}
	switch args[0] {
	case "show":
		active, _ := e.resolver.Resolve(ctx)
		if active == "" {
			fmt.Fprintln(e.std.out, "No repository. Run `gh-issues repo set owner/name` or work inside a clone.")
			return nil
		}
		source := "detected from git remotes"
		if e.store.Config().Repo != "" {
			source = "configured"
		}
		fmt.Fprintf(e.std.out, "%s (%s)\n", active, source)
	case "list":
		configured := strings.TrimSpace(e.store.Config().Repo)
		remotes := e.resolver.Candidates(ctx)
		active := configured
		if active == "" {
			active = repo.PickRemote(remotes)
		}
		mark := func(name string) string {
			if name == active {
				return "*"
			}
			return " "
		}
		if configured != "" {
			fmt.Fprintf(e.std.out, "%s %s (configured)\n", mark(configured), configured)
		}
		if len(remotes) == 0 {
			fmt.Fprintln(e.std.out, "No repositories found in git remotes.")
		}
		for _, rem := range remotes {
			fmt.Fprintf(e.std.out, "%s %s (%s)\n", mark(rem.URL), rem.URL, rem.Name)
		}
	case "set":
		if len(args) != 2 {
			return errors.New("usage: gh-issues repo set owner/name|auto")
		}
		value := strings.TrimSpace(args[1])
		if value == "auto" {
			value = ""
		} else if !repo.Valid(value) {
			return fmt.Errorf("invalid repository %q (want owner/name)", value)
		}
		if err := e.store.UpdateConfig(func(c *config.Config) { c.Repo = value }); err != nil {
			return err
		}
		if value == "" {
			fmt.Fprintln(e.std.out, "Repository: auto-detect from git remotes")
		} else {
			fmt.Fprintf(e.std.out, "Repository: %s\n", value)
		}
	default:
		return fmt.Errorf("unknown repo subcommand %q", args[0])
	}
	return nil
}

func runAuth(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: gh-issues auth mode|set-token|clear")
	}
	switch args[0] {
	case "mode":
		if len(args) == 1 {
			fmt.Fprintln(e.std.out, e.store.Config().AuthMode)
			return nil
		}
		mode, ok := auth.ParseMode(args[1])
		if !ok {
			return fmt.Errorf("invalid auth mode %q (want session or pat)", args[1])
		}
		if err := e.store.UpdateConfig(func(c *config.Config) { c.AuthMode = string(mode) }); err != nil {
			return err
		}
		fmt.Fprintf(e.std.out, "Auth mode: %s\n", mode)
	case "set-token":
		token, err := readToken(e.std.in, e.std.err)
		if err != nil {
			return err
		}
		if token == "" {
			return errors.New("no token entered")
		}
		if err := e.tokens.Set(token); err != nil {
			return err
		}
		fmt.Fprintln(e.std.out, "Token saved.")
	case "clear":
		if err := e.tokens.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(e.std.out, "Token cleared.")
	default:
		return fmt.Errorf("unknown auth subcommand %q", args[0])
	}
	return nil
}

func runDoctor(ctx context.Context, e *env, args []string) error {
	mode, _ := auth.ParseMode(e.store.Config().AuthMode)
	provider := e.provider
	provider.Remediate = nil
	results := doctor.Run(ctx, doctor.Deps{
		Mode:      mode,
		Repos:     e.resolver,
		Tokens:    provider,
		Access:    e.client,
		ThemesDir: filepath.Join(e.store.Dir(), "themes"),
		Theme:     e.store.Config().Theme.Active,
	})
	doctor.Write(e.std.out, results)
	if doctor.Failed(results) {
		return errors.New("doctor: some checks failed")
	}
	return nil
}

func issueNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid issue number %q", s)
	}
	return n, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func terminalWidth(e *env) (int, bool) {
	f, ok := e.std.out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return 80, true
	}
	return w, true
}
