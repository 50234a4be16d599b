package repo

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"gh-issues/internal/app"
)

var (
	validRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
	scpRe   = regexp.MustCompile(`^(?:[A-Za-z0-9_.+-]+@)?([A-Za-z0-9_.-]+):([^/]+)/([^/]+?)(?:\.git)?/?$`)
)

// Valid reports whether s looks like owner/name.
func Valid(s string) bool {
	return validRe.MatchString(s)
}

// ParseRemoteURL extracts owner/name from an SSH or HTTPS style remote.
func ParseRemoteURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return "", false
		}
		switch u.Scheme {
		case "https", "http", "ssh", "git":
		default:
			return "", false
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) != 2 {
			return "", false
		}
		return join(parts[0], strings.TrimSuffix(parts[1], ".git"))
	}
	m := scpRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return join(m[2], m[3])
}

func join(owner, name string) (string, bool) {
	full := owner + "/" + name
	if !Valid(full) {
		return "", false
	}
	return full, true
}

type Remote struct {
	Name string
	URL  string
}

type RemoteLister interface {
	List(ctx context.Context, dir string) ([]Remote, error)
}

// GitRemotes enumerates remotes of the checkout at a directory.
type GitRemotes struct {
	Runner app.CommandRunner
}

func (g GitRemotes) List(ctx context.Context, dir string) ([]Remote, error) {
	out, err := g.Runner.Run(ctx, "git", "-C", dir, "remote")
	if err != nil {
		return nil, fmt.Errorf("list remotes in %s: %w", dir, err)
	}
	var remotes []Remote
	for _, name := range strings.Fields(string(out)) {
		u, err := g.Runner.Run(ctx, "git", "-C", dir, "remote", "get-url", name)
		if err != nil {
			continue
		}
		remotes = append(remotes, Remote{Name: name, URL: strings.TrimSpace(string(u))})
	}
	return remotes, nil
}
