package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"gh-issues/internal/auth"
	"gh-issues/internal/github"
	"gh-issues/internal/theme"
)

type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

type Result struct {
	Name   string
	Status Status
	Detail string
}

type RepoResolver interface {
	Resolve(ctx context.Context) (string, []string)
}

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RepoAccess looks the active repository up with the resolved token.
type RepoAccess interface {
	GetRepository(ctx context.Context, token, repo string) (github.Repository, error)
}

type Deps struct {
	Mode   auth.Mode
	Repos  RepoResolver
	Tokens TokenSource
	// Access is optional; without it the access check is skipped.
	Access    RepoAccess
	ThemesDir string
	Theme     string
	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// Run checks the host tools, repository detection, credentials, repository
// access and theme. Tokens must not prompt.
func Run(ctx context.Context, d Deps) []Result {
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	var out []Result

	if p, err := lookPath("git"); err != nil {
		out = append(out, Result{"git", StatusFail, "git not found in PATH; remotes cannot be detected"})
	} else {
		out = append(out, Result{"git", StatusOK, p})
	}

	ghStatus := StatusWarn
	if d.Mode == auth.ModeSession {
		ghStatus = StatusFail
	}
	if p, err := lookPath("gh"); err != nil {
		out = append(out, Result{"gh", ghStatus, "gh not found in PATH; session auth needs it or GH_TOKEN"})
	} else {
		out = append(out, Result{"gh", StatusOK, p})
	}

	active, candidates := d.Repos.Resolve(ctx)
	if active == "" {
		out = append(out, Result{"repository", StatusWarn, "no GitHub remote detected; use `gh-issues repo set owner/name`"})
	} else {
		out = append(out, Result{"repository", StatusOK, fmt.Sprintf("%s (%d candidates)", active, len(candidates))})
	}

	token, err := d.Tokens.Token(ctx)
	if err != nil {
		detail := err.Error()
		var noAuth *auth.NoAuthError
		if errors.As(err, &noAuth) && d.Mode == auth.ModePAT {
			detail += "; run `gh-issues auth set-token`"
		}
		out = append(out, Result{"auth (" + string(d.Mode) + ")", StatusFail, detail})
	} else {
		out = append(out, Result{"auth (" + string(d.Mode) + ")", StatusOK, "token resolved"})
		if active != "" && d.Access != nil {
			out = append(out, checkAccess(ctx, d.Access, token, active))
		}
	}

	out = append(out, checkTheme(d.ThemesDir, d.Theme))
	return out
}

func checkAccess(ctx context.Context, api RepoAccess, token, repo string) Result {
	r, err := api.GetRepository(ctx, token, repo)
	switch {
	case err == nil:
		return Result{"access", StatusOK, fmt.Sprintf("%s (default branch %s)", r.FullName, r.DefaultBranch)}
	case github.IsUnauthorized(err):
		return Result{"access", StatusFail, "token was rejected; sign in again or replace it with `gh-issues auth set-token`"}
	case github.IsNotFound(err):
		return Result{"access", StatusFail, repo + " does not exist or the token cannot see it"}
	}
	return Result{"access", StatusWarn, err.Error()}
}

func checkTheme(dir, active string) Result {
	installed := "none installed"
	if ids, err := theme.ListLocal(dir); err != nil {
		installed = "cannot list themes: " + err.Error()
	} else if len(ids) > 0 {
		installed = "installed: " + strings.Join(ids, ", ")
	}
	_, id, err := theme.LoadActive(dir, active)
	if err != nil {
		return Result{"theme", StatusWarn, fmt.Sprintf("%q unavailable, using default: %v (%s)", active, err, installed)}
	}
	return Result{"theme", StatusOK, id + " (" + installed + ")"}
}

func Failed(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

func Write(w io.Writer, results []Result) {
	for _, r := range results {
		fmt.Fprintf(w, "[%-4s] %-16s %s\n", r.Status, r.Name, r.Detail)
	}
}
