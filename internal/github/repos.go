package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v67/github"
)

func (c *Client) ListLabels(ctx context.Context, token, repo string) ([]string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	raw, _, err := c.rest(token).Issues.ListLabels(ctx, owner, name, &gh.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("list labels in %s: %w", repo, apiError(err))
	}
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if n := l.GetName(); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

func (c *Client) ListAssignees(ctx context.Context, token, repo string) ([]string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	raw, _, err := c.rest(token).Issues.ListAssignees(ctx, owner, name, &gh.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("list assignees in %s: %w", repo, apiError(err))
	}
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		if login := u.GetLogin(); login != "" {
			out = append(out, login)
		}
	}
	return out, nil
}

func (c *Client) GetRepository(ctx context.Context, token, repo string) (Repository, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return Repository{}, err
	}
	r, _, err := c.rest(token).Repositories.Get(ctx, owner, name)
	if err != nil {
		return Repository{}, fmt.Errorf("get repository %s: %w", repo, apiError(err))
	}
	return Repository{
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		HTMLURL:       r.GetHTMLURL(),
	}, nil
}

func (c *Client) CreatePull(ctx context.Context, token, repo string, req PullRequestRequest) (PullRequest, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return PullRequest{}, err
	}
	pr, _, err := c.rest(token).PullRequests.Create(ctx, owner, name, &gh.NewPullRequest{
		Title: gh.String(req.Title),
		Head:  gh.String(req.Head),
		Base:  gh.String(req.Base),
		Body:  optional(req.Body),
		Draft: gh.Bool(req.Draft),
	})
	if err != nil {
		return PullRequest{}, fmt.Errorf("create pull request in %s: %w", repo, apiError(err))
	}
	return PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		HTMLURL: pr.GetHTMLURL(),
		Draft:   pr.GetDraft(),
	}, nil
}

// CreateContent writes a new file at path. The SDK base64-encodes Content.
func (c *Client) CreateContent(ctx context.Context, token, repo, path string, req ContentRequest) (ContentResponse, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return ContentResponse{}, err
	}
	res, _, err := c.rest(token).Repositories.CreateFile(ctx, owner, name, contentPath(path), &gh.RepositoryContentFileOptions{
		Message: gh.String(req.Message),
		Content: req.Content,
		Branch:  optional(req.Branch),
	})
	if err != nil {
		return ContentResponse{}, fmt.Errorf("upload %s to %s: %w", path, repo, apiError(err))
	}
	var out ContentResponse
	if res != nil && res.Content != nil {
		out.Content.Path = res.Content.GetPath()
		out.Content.DownloadURL = res.Content.GetDownloadURL()
		out.Content.HTMLURL = res.Content.GetHTMLURL()
	}
	return out, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return gh.String(s)
}
