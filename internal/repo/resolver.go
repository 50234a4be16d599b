package repo

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"gh-issues/internal/logging"
)

// Resolver decides which repository the panel talks to. A configured value
// always wins; otherwise the first parseable remote is used, with origin
// preferred over the others.
type Resolver struct {
	Configured func() string
	Dirs       []string
	Remotes    RemoteLister
	Logger     *slog.Logger
}

func (r Resolver) Resolve(ctx context.Context) (string, []string) {
	configured := ""
	if r.Configured != nil {
		configured = strings.TrimSpace(r.Configured())
	}
	discovered := r.Candidates(ctx)

	active := configured
	if active == "" {
		active = PickRemote(discovered)
	}
	candidates := make([]string, 0, len(discovered)+1)
	if configured != "" {
		candidates = append(candidates, configured)
	}
	for _, rem := range discovered {
		candidates = append(candidates, rem.URL)
	}
	return active, sortUnique(candidates)
}

// Candidates returns the parseable GitHub remotes of every work dir with URL
// replaced by owner/name. Enumeration failures are not fatal; they just
// yield nothing.
func (r Resolver) Candidates(ctx context.Context) []Remote {
	if r.Remotes == nil {
		return nil
	}
	logger := logging.OrDiscard(r.Logger)
	var out []Remote
	for _, dir := range r.Dirs {
		remotes, err := r.Remotes.List(ctx, dir)
		if err != nil {
			logger.Debug("remote enumeration failed", "dir", dir, "err", err)
			continue
		}
		for _, rem := range remotes {
			full, ok := ParseRemoteURL(rem.URL)
			if !ok {
				continue
			}
			out = append(out, Remote{Name: rem.Name, URL: full})
		}
	}
	return out
}

// PickRemote chooses origin when present, else the first remote.
func PickRemote(remotes []Remote) string {
	for _, rem := range remotes {
		if rem.Name == "origin" {
			return rem.URL
		}
	}
	if len(remotes) > 0 {
		return remotes[0].URL
	}
	return ""
}

func sortUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
