package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gh-issues/internal/app"
)

// FileTokenStore keeps the personal access token in a user-only file.
type FileTokenStore struct {
	Path string
}

func (s FileTokenStore) Get() (string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (s FileTokenStore) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear()
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token+"\n"), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

func (s FileTokenStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// GHSession borrows the session the gh CLI already holds. GH_TOKEN and
// GITHUB_TOKEN take precedence, matching gh itself.
type GHSession struct {
	Runner app.CommandRunner
	Getenv func(string) string
}

func (g GHSession) Session(ctx context.Context) (string, error) {
	getenv := g.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, key := range []string{"GH_TOKEN", "GITHUB_TOKEN"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v, nil
		}
	}
	out, err := g.Runner.Run(ctx, "gh", "auth", "token")
	if err != nil {
		return "", fmt.Errorf("gh auth token: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
