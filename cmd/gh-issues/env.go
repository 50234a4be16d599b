package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"gh-issues/internal/app"
	"gh-issues/internal/auth"
	"gh-issues/internal/bridge"
	"gh-issues/internal/config"
	"gh-issues/internal/github"
	"gh-issues/internal/issues"
	"gh-issues/internal/logging"
	"gh-issues/internal/panel"
	"gh-issues/internal/repo"
	"gh-issues/internal/theme"
	"gh-issues/internal/tui"
	"gh-issues/internal/upload"
	"gh-issues/internal/version"
)

// tokenUser is the keyring account the personal access token is filed under.
const tokenUser = "personal-access-token"

type envOptions struct {
	debug  bool
	stderr bool
	// prompt lets token mode ask for a token on the terminal when none is
	// stored. Views that own the terminal leave it off.
	prompt bool
}

// env is everything one invocation shares: the stores, the API client and
// the service built on them.
type env struct {
	std      streams
	store    *config.Store
	logger   *slog.Logger
	closeLog io.Closer
	runner   app.CommandRunner
	client   *github.Client
	tokens   auth.KeyringTokenStore
	provider auth.Provider
	resolver repo.Resolver
	service  issues.Service
}

func openEnv(opts envOptions, std streams) (*env, error) {
	dir, err := app.ConfigDir()
	if err != nil {
		return nil, err
	}
	store, err := config.OpenStore(dir)
	if err != nil {
		return nil, err
	}
	cfg := store.Config()

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(dir, app.Name+".log")
	}
	level := cfg.Log.Level
	if opts.debug {
		level = "debug"
	}
	logger, closer, err := logging.Setup(logging.Options{File: logFile, Level: level, Stderr: opts.stderr})
	if err != nil {
		return nil, err
	}

	runner := app.ExecRunner{}
	client := github.NewClient(
		github.WithBaseURL(cfg.APIBaseURL),
		github.WithLogger(logger),
		github.WithUserAgent(app.Name+"/"+version.Value),
	)
	tokens := auth.KeyringTokenStore{
		Service:  app.Name,
		User:     tokenUser,
		Fallback: auth.FileTokenStore{Path: filepath.Join(dir, "token")},
	}
	provider := auth.Provider{
		Mode: func() auth.Mode {
			m, _ := auth.ParseMode(store.Config().AuthMode)
			return m
		},
		Tokens:  tokens,
		Session: auth.GHSession{Runner: runner},
	}
	if opts.prompt && isTerminal(std.in) {
		provider.Remediate = func(ctx context.Context) (string, error) {
			fmt.Fprintln(std.err, "No GitHub token is stored for token mode.")
			return readToken(std.in, std.err)
		}
	}
	resolver := repo.Resolver{
		Configured: func() string { return store.Config().Repo },
		Dirs:       app.WorkDirs(),
		Remotes:    repo.GitRemotes{Runner: runner},
		Logger:     logger,
	}
	logger.Debug("environment ready", "config_dir", dir, "auth_mode", cfg.AuthMode)
	return &env{
		std:      std,
		store:    store,
		logger:   logger,
		closeLog: closer,
		runner:   runner,
		client:   client,
		tokens:   tokens,
		provider: provider,
		resolver: resolver,
		service:  issues.Service{API: client, Repos: resolver, Tokens: provider},
	}, nil
}

func (e *env) Close() error {
	if e.closeLog == nil {
		return nil
	}
	return e.closeLog.Close()
}

func (e *env) pipeline() upload.Pipeline {
	return upload.ForConfig(e.client, e.store.Config())
}

func (e *env) controller() *panel.Controller {
	return panel.New(panel.Deps{
		Service:   e.service,
		Content:   e.client,
		Store:     e.store,
		Tokens:    e.tokens,
		Clipboard: systemClipboard{},
		Opener:    app.NewURLOpener(e.runner),
		Logger:    e.logger,
		Location:  time.Local,
	})
}

func (e *env) theme() theme.PaletteResolved {
	active := e.store.Config().Theme.Active
	resolved, id, err := theme.Detect(filepath.Join(e.store.Dir(), "themes"), active)
	if err != nil {
		e.logger.Warn("theme fallback", "theme", active, "err", err)
	}
	e.logger.Debug("theme loaded", "theme", id)
	return resolved
}

func runTUI(ctx context.Context, std streams, verbose bool) error {
	// The full-screen view owns stderr too.
	e, err := openEnv(envOptions{debug: verbose}, std)
	if err != nil {
		return err
	}
	defer e.Close()
	return tui.Run(ctx, e.controller(), tui.Options{
		Theme:   e.theme(),
		Version: version.Value,
		Logger:  e.logger,
	})
}

func runServe(ctx context.Context, std streams, verbose bool) error {
	// stdout carries the protocol; stderr logging stays opt-in.
	e, err := openEnv(envOptions{debug: verbose, stderr: verbose}, std)
	if err != nil {
		return err
	}
	defer e.Close()
	e.logger.Info("bridge serving on stdio", "version", version.Value)
	return bridge.Serve(ctx, bridge.Stdio(), e.controller(), e.logger)
}

type systemClipboard struct{}

func (systemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readToken reads one token without echo from a terminal, or the first line
// of piped input.
func readToken(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "GitHub token: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
