package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v67/github"
)

// ListIssues returns issues (never pull requests) in the given state, most
// recently updated first.
func (c *Client) ListIssues(ctx context.Context, token, repo, state string) ([]Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	raw, _, err := c.rest(token).Issues.ListByRepo(ctx, owner, name, &gh.IssueListByRepoOptions{
		State:       state,
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, fmt.Errorf("list issues in %s: %w", repo, apiError(err))
	}
	out := make([]Issue, 0, len(raw))
	for _, issue := range raw {
		if issue.IsPullRequest() {
			continue
		}
		out = append(out, fromIssue(issue))
	}
	return out, nil
}

func (c *Client) SearchIssues(ctx context.Context, token, query string) ([]Issue, error) {
	res, _, err := c.rest(token).Search.Issues(ctx, query, &gh.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: 50},
	})
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", apiError(err))
	}
	out := make([]Issue, 0, len(res.Issues))
	for _, issue := range res.Issues {
		out = append(out, fromIssue(issue))
	}
	return out, nil
}

func (c *Client) GetIssue(ctx context.Context, token, repo string, number int) (Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return Issue{}, err
	}
	issue, _, err := c.rest(token).Issues.Get(ctx, owner, name, number)
	if err != nil {
		return Issue{}, fmt.Errorf("get issue %s#%d: %w", repo, number, apiError(err))
	}
	return fromIssue(issue), nil
}

func (c *Client) CreateIssue(ctx context.Context, token, repo string, req IssueRequest) (Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return Issue{}, err
	}
	issue, _, err := c.rest(token).Issues.Create(ctx, owner, name, req.toGitHub())
	if err != nil {
		return Issue{}, fmt.Errorf("create issue in %s: %w", repo, apiError(err))
	}
	return fromIssue(issue), nil
}

func (c *Client) UpdateIssue(ctx context.Context, token, repo string, number int, req IssueRequest) (Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return Issue{}, err
	}
	issue, _, err := c.rest(token).Issues.Edit(ctx, owner, name, number, req.toGitHub())
	if err != nil {
		return Issue{}, fmt.Errorf("update issue %s#%d: %w", repo, number, apiError(err))
	}
	return fromIssue(issue), nil
}

func (c *Client) AddAssignees(ctx context.Context, token, repo string, number int, assignees []string) (Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return Issue{}, err
	}
	issue, _, err := c.rest(token).Issues.AddAssignees(ctx, owner, name, number, assignees)
	if err != nil {
		return Issue{}, fmt.Errorf("assign issue %s#%d: %w", repo, number, apiError(err))
	}
	return fromIssue(issue), nil
}
