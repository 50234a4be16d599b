package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"gh-issues/internal/config"
	"gh-issues/internal/issues"
)

type fakeGitHub struct {
	t       *testing.T
	created map[string]any
	patched map[string]any
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/api/issues", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "open" {
			f.t.Errorf("state query = %q", got)
		}
		writeJSON(w, []map[string]any{
			{"number": 5, "title": "Crash on start", "state": "open", "html_url": "https://github.com/acme/api/issues/5",
				"labels": []map[string]any{{"name": "bug"}}, "user": map[string]any{"login": "mona"}},
			{"number": 6, "title": "A pull request", "state": "open", "pull_request": map[string]any{"url": "x"}},
		})
	})
	mux.HandleFunc("GET /repos/acme/api/issues/5", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"number": 5, "title": "Crash on start", "body": "old body", "state": "open",
			"labels": []map[string]any{{"name": "bug"}}})
	})
	mux.HandleFunc("GET /repos/acme/api", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"full_name": "acme/api", "default_branch": "trunk", "html_url": "https://github.com/acme/api"})
	})
	mux.HandleFunc("POST /repos/acme/api/issues", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&f.created); err != nil {
			f.t.Errorf("decode create: %v", err)
		}
		writeJSON(w, map[string]any{"number": 9, "title": f.created["title"], "state": "open", "html_url": "https://github.com/acme/api/issues/9"})
	})
	mux.HandleFunc("PATCH /repos/acme/api/issues/5", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&f.patched); err != nil {
			f.t.Errorf("decode patch: %v", err)
		}
		state, _ := f.patched["state"].(string)
		writeJSON(w, map[string]any{"number": 5, "title": "Crash on start", "state": orDefault(state, "open"), "html_url": "https://github.com/acme/api/issues/5"})
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			f.t.Errorf("authorization = %q", got)
		}
		mux.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// setup points the config dir at a temp dir holding a token-mode config for
// acme/api against a fake API. The keyring is an in-memory mock holding the
// token.
func setup(t *testing.T) (*fakeGitHub, string) {
	t.Helper()
	keyring.MockInit()
	gh := &fakeGitHub{t: t}
	srv := httptest.NewServer(gh.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("GH_ISSUES_CONFIG_DIR", dir)
	cfg := config.Default()
	cfg.Repo = "acme/api"
	cfg.AuthMode = config.AuthModePAT
	cfg.APIBaseURL = srv.URL
	if err := config.SaveTo(dir, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if err := keyring.Set("gh-issues", tokenUser, "tok"); err != nil {
		t.Fatalf("seed keyring: %v", err)
	}
	return gh, dir
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errb bytes.Buffer
	err := run(context.Background(), args, streams{in: strings.NewReader(stdin), out: &out, err: &errb})
	return out.String(), err
}

func TestListJSON(t *testing.T) {
	setup(t)
	out, err := runCLI(t, "", "list", "--output", "json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var rows []issues.ViewModel
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(rows) != 1 {
		t.Fatalf("pull requests must be dropped, got %d rows", len(rows))
	}
	want := issues.ViewModel{
		Number:    5,
		Title:     "Crash on start",
		State:     "open",
		User:      "mona",
		UpdatedAt: "unknown",
		Labels:    []string{"bug"},
		Assignees: []string{},
		HTMLURL:   "https://github.com/acme/api/issues/5",
	}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestListYAMLAndTable(t *testing.T) {
	setup(t)
	out, err := runCLI(t, "", "list", "-o", "yaml")
	if err != nil {
		t.Fatalf("list yaml: %v", err)
	}
	var rows []map[string]any
	if err := yaml.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(rows) != 1 || rows[0]["htmlUrl"] != "https://github.com/acme/api/issues/5" {
		t.Fatalf("unexpected yaml rows: %v", rows)
	}

	out, err = runCLI(t, "", "list")
	if err != nil {
		t.Fatalf("list table: %v", err)
	}
	if !strings.Contains(out, "Crash on start") || !strings.Contains(out, "TITLE") {
		t.Fatalf("table output missing row:\n%s", out)
	}
}

func TestListRejectsBadFlags(t *testing.T) {
	setup(t)
	if _, err := runCLI(t, "", "list", "--filter", "stale"); err == nil {
		t.Fatalf("expected invalid filter error")
	}
	if _, err := runCLI(t, "", "list", "--output", "xml"); err == nil {
		t.Fatalf("expected invalid output error")
	}
}

func TestCreateNormalizesFields(t *testing.T) {
	gh, _ := setup(t)
	out, err := runCLI(t, "", "create", "--title", "  New bug  ", "--labels", "bug, ui", "--labels", "bug", "--assignees", "mona")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "#9") {
		t.Fatalf("unexpected output %q", out)
	}
	if gh.created["title"] != "New bug" {
		t.Fatalf("title not trimmed: %v", gh.created["title"])
	}
	if diff := cmp.Diff([]any{"bug", "ui"}, gh.created["labels"]); diff != "" {
		t.Fatalf("labels (-want +got):\n%s", diff)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	gh, _ := setup(t)
	if _, err := runCLI(t, "", "create", "--title", "   "); err == nil {
		t.Fatalf("expected validation error")
	}
	if gh.created != nil {
		t.Fatalf("nothing should be sent for an invalid title")
	}
}

func TestEditKeepsUnchangedFields(t *testing.T) {
	gh, _ := setup(t)
	if _, err := runCLI(t, "new body\n", "edit", "--number", "5", "--body-file", "-"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if gh.patched["title"] != "Crash on start" {
		t.Fatalf("title should be carried over: %v", gh.patched["title"])
	}
	if gh.patched["body"] != "new body\n" {
		t.Fatalf("body = %q", gh.patched["body"])
	}
	if diff := cmp.Diff([]any{"bug"}, gh.patched["labels"]); diff != "" {
		t.Fatalf("labels (-want +got):\n%s", diff)
	}
}

func TestCloseAndReopen(t *testing.T) {
	gh, _ := setup(t)
	out, err := runCLI(t, "", "close", "#5")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if gh.patched["state"] != "closed" || !strings.Contains(out, "closed") {
		t.Fatalf("close sent %v, printed %q", gh.patched, out)
	}
	if _, err := runCLI(t, "", "reopen", "5"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if gh.patched["state"] != "open" {
		t.Fatalf("reopen sent %v", gh.patched)
	}
	if _, err := runCLI(t, "", "close", "abc"); err == nil {
		t.Fatalf("expected invalid number error")
	}
}

func TestRepoCommands(t *testing.T) {
	_, dir := setup(t)
	out, err := runCLI(t, "", "repo", "show")
	if err != nil {
		t.Fatalf("repo show: %v", err)
	}
	if strings.TrimSpace(out) != "acme/api (configured)" {
		t.Fatalf("repo show = %q", out)
	}
	if _, err := runCLI(t, "", "repo", "set", "not a repo"); err == nil {
		t.Fatalf("expected invalid repository error")
	}
	if _, err := runCLI(t, "", "repo", "set", "acme/web"); err != nil {
		t.Fatalf("repo set: %v", err)
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Repo != "acme/web" {
		t.Fatalf("repo = %q", cfg.Repo)
	}
	if _, err := runCLI(t, "", "repo", "set", "auto"); err != nil {
		t.Fatalf("repo set auto: %v", err)
	}
	if cfg, _ = config.LoadFrom(dir); cfg.Repo != "" {
		t.Fatalf("auto should clear the repo, got %q", cfg.Repo)
	}
}

func TestRepoListMarksConfigured(t *testing.T) {
	setup(t)
	out, err := runCLI(t, "", "repo", "list")
	if err != nil {
		t.Fatalf("repo list: %v", err)
	}
	if !strings.HasPrefix(out, "* acme/api (configured)\n") {
		t.Fatalf("repo list = %q", out)
	}
}

func TestDoctorChecksRepositoryAccess(t *testing.T) {
	setup(t)
	// git or gh may be missing on the test host, which fails the run; the
	// access line is reported either way.
	out, _ := runCLI(t, "", "doctor")
	if !strings.Contains(out, "acme/api (default branch trunk)") {
		t.Fatalf("doctor output missing access check:\n%s", out)
	}
	if !strings.Contains(out, "default (none installed)") {
		t.Fatalf("doctor output missing theme check:\n%s", out)
	}
}

func TestAuthCommands(t *testing.T) {
	_, dir := setup(t)
	if _, err := runCLI(t, "", "auth", "mode", "session"); err != nil {
		t.Fatalf("auth mode: %v", err)
	}
	out, err := runCLI(t, "", "auth", "mode")
	if err != nil {
		t.Fatalf("auth mode: %v", err)
	}
	if strings.TrimSpace(out) != "session" {
		t.Fatalf("mode = %q", out)
	}
	if _, err := runCLI(t, "", "auth", "mode", "oauth"); err == nil {
		t.Fatalf("expected invalid mode error")
	}

	if _, err := runCLI(t, "  piped-token \n", "auth", "set-token"); err != nil {
		t.Fatalf("set-token: %v", err)
	}
	if tok, err := keyring.Get("gh-issues", tokenUser); err != nil || tok != "piped-token" {
		t.Fatalf("keyring token = %q, %v", tok, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "token")); !os.IsNotExist(err) {
		t.Fatalf("token must not be written in plaintext, stat err = %v", err)
	}
	if _, err := runCLI(t, "", "auth", "set-token"); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if _, err := runCLI(t, "", "auth", "clear"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := keyring.Get("gh-issues", tokenUser); err != keyring.ErrNotFound {
		t.Fatalf("keyring token should be gone, err = %v", err)
	}
}

func TestMissingTokenReportsAuthError(t *testing.T) {
	setup(t)
	if err := keyring.Delete("gh-issues", tokenUser); err != nil {
		t.Fatalf("remove token: %v", err)
	}
	_, err := runCLI(t, "", "list")
	if err == nil {
		t.Fatalf("expected an auth error")
	}
}

func TestUnknownCommand(t *testing.T) {
	setup(t)
	if _, err := runCLI(t, "", "frobnicate"); err == nil {
		t.Fatalf("expected unknown command error")
	}
	out, err := runCLI(t, "", "help")
	if err != nil || !strings.Contains(out, "gh-issues list") {
		t.Fatalf("help = %q, %v", out, err)
	}
}
