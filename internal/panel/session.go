package panel

import (
	"time"

	"gh-issues/internal/github"
	"gh-issues/internal/issues"
)

const MetaFreshness = 5 * time.Minute

// session is the state of one live view. It is created on attach and thrown
// away on detach; only filter and search are persisted.
type session struct {
	filter issues.Filter
	search string

	cacheRepo  string
	issueCache map[int]github.Issue

	meta metaCache
}

type metaCache struct {
	repo      string
	labels    []string
	assignees []string
	fetchedAt time.Time
}

func (m metaCache) freshFor(repo string, now time.Time) bool {
	if m.repo == "" || m.repo != repo || m.fetchedAt.IsZero() {
		return false
	}
	return now.Sub(m.fetchedAt) < MetaFreshness
}

func (m metaCache) message() Meta {
	return Meta{
		Repo:      m.repo,
		Labels:    append([]string{}, m.labels...),
		Assignees: append([]string{}, m.assignees...),
	}
}

func (s *session) cached(repo string, number int) (github.Issue, bool) {
	if s.cacheRepo != repo {
		return github.Issue{}, false
	}
	issue, ok := s.issueCache[number]
	return issue, ok
}

func (s *session) resetIssues() {
	s.cacheRepo = ""
	s.issueCache = map[int]github.Issue{}
}
