package issues

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"gh-issues/internal/github"
)

var ErrNoRepository = errors.New("no GitHub repository configured or detected")

// API is the slice of the GitHub client the issue operations need.
type API interface {
	ListIssues(ctx context.Context, token, repo, state string) ([]github.Issue, error)
	SearchIssues(ctx context.Context, token, query string) ([]github.Issue, error)
	GetIssue(ctx context.Context, token, repo string, number int) (github.Issue, error)
	CreateIssue(ctx context.Context, token, repo string, req github.IssueRequest) (github.Issue, error)
	UpdateIssue(ctx context.Context, token, repo string, number int, req github.IssueRequest) (github.Issue, error)
	AddAssignees(ctx context.Context, token, repo string, number int, assignees []string) (github.Issue, error)
	ListLabels(ctx context.Context, token, repo string) ([]string, error)
	ListAssignees(ctx context.Context, token, repo string) ([]string, error)
	CreatePull(ctx context.Context, token, repo string, req github.PullRequestRequest) (github.PullRequest, error)
}

type RepoResolver interface {
	Resolve(ctx context.Context) (active string, candidates []string)
}

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Target is a resolved repository with the credential to reach it.
type Target struct {
	Repo  string
	Token string
}

// Service binds the resolver, the credential provider and the API. The
// panel controller and the CLI commands share it.
type Service struct {
	API    API
	Repos  RepoResolver
	Tokens TokenSource
}

func (s Service) Target(ctx context.Context) (Target, error) {
	repo, _ := s.Repos.Resolve(ctx)
	if repo == "" {
		return Target{}, ErrNoRepository
	}
	token, err := s.Tokens.Token(ctx)
	if err != nil {
		return Target{}, err
	}
	return Target{Repo: repo, Token: token}, nil
}

// SearchQuery builds the search API query for a free-text search scoped to
// one repository and filter.
func SearchQuery(repo string, filter Filter, search string) string {
	q := strings.TrimSpace(search) + " repo:" + repo + " is:issue"
	switch filter {
	case FilterOpen:
		q += " is:open"
	case FilterClosed:
		q += " is:closed"
	}
	return q
}

func (s Service) Fetch(ctx context.Context, t Target, filter Filter, search string) ([]github.Issue, error) {
	if strings.TrimSpace(search) != "" {
		return s.API.SearchIssues(ctx, t.Token, SearchQuery(t.Repo, filter, search))
	}
	return s.API.ListIssues(ctx, t.Token, t.Repo, string(filter))
}

func (s Service) Get(ctx context.Context, t Target, number int) (github.Issue, error) {
	return s.API.GetIssue(ctx, t.Token, t.Repo, number)
}

func (s Service) Create(ctx context.Context, t Target, f Fields) (github.Issue, error) {
	return s.API.CreateIssue(ctx, t.Token, t.Repo, github.IssueRequest{
		Title:     github.String(f.Title),
		Body:      github.String(f.Body),
		Labels:    github.Strings(f.Labels),
		Assignees: github.Strings(f.Assignees),
	})
}

func (s Service) Update(ctx context.Context, t Target, number int, f Fields) (github.Issue, error) {
	return s.API.UpdateIssue(ctx, t.Token, t.Repo, number, github.IssueRequest{
		Title:     github.String(f.Title),
		Body:      github.String(f.Body),
		Labels:    github.Strings(f.Labels),
		Assignees: github.Strings(f.Assignees),
	})
}

// SetState only accepts open or closed.
func (s Service) SetState(ctx context.Context, t Target, number int, state string) (github.Issue, error) {
	if state != "open" && state != "closed" {
		return github.Issue{}, &ValidationError{Field: "state", Reason: fmt.Sprintf("must be open or closed, got %q", state)}
	}
	return s.API.UpdateIssue(ctx, t.Token, t.Repo, number, github.IssueRequest{State: github.String(state)})
}

func (s Service) Assign(ctx context.Context, t Target, number int, assignees []string) (github.Issue, error) {
	assignees = NormalizeList(assignees...)
	if len(assignees) == 0 {
		return github.Issue{}, &ValidationError{Field: "assignees", Reason: "is required"}
	}
	return s.API.AddAssignees(ctx, t.Token, t.Repo, number, assignees)
}

type PullFields struct {
	Title string
	Head  string
	Base  string
	Body  string
	Draft bool
}

// CreatePull opens a pull request. An empty base uses defaultBase.
func (s Service) CreatePull(ctx context.Context, t Target, f PullFields, defaultBase string) (github.PullRequest, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Head = strings.TrimSpace(f.Head)
	f.Base = strings.TrimSpace(f.Base)
	if f.Title == "" {
		return github.PullRequest{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	if f.Head == "" {
		return github.PullRequest{}, &ValidationError{Field: "head", Reason: "is required"}
	}
	if f.Base == "" {
		f.Base = defaultBase
	}
	return s.API.CreatePull(ctx, t.Token, t.Repo, github.PullRequestRequest{
		Title: f.Title,
		Head:  f.Head,
		Base:  f.Base,
		Body:  f.Body,
		Draft: f.Draft,
	})
}

type Meta struct {
	Labels    []string
	Assignees []string
}

// FetchMeta loads labels and assignees concurrently. Either failure fails
// the whole call.
func (s Service) FetchMeta(ctx context.Context, t Target) (Meta, error) {
	var meta Meta
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		labels, err := s.API.ListLabels(gctx, t.Token, t.Repo)
		if err != nil {
			return err
		}
		meta.Labels = labels
		return nil
	})
	g.Go(func() error {
		assignees, err := s.API.ListAssignees(gctx, t.Token, t.Repo)
		if err != nil {
			return err
		}
		meta.Assignees = assignees
		return nil
	})
	if err := g.Wait(); err != nil {
		return Meta{}, err
	}
	return meta, nil
}
