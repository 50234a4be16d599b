package github

import (
	"time"

	gh "github.com/google/go-github/v67/github"
)

type User struct {
	Login string
}

type Label struct {
	Name string
}

// Issue is the flattened issue the rest of the module works with.
type Issue struct {
	Number    int
	Title     string
	Body      string
	State     string
	User      *User
	Labels    []Label
	Assignees []User
	HTMLURL   string
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

func fromIssue(i *gh.Issue) Issue {
	if i == nil {
		return Issue{}
	}
	out := Issue{
		Number:  i.GetNumber(),
		Title:   i.GetTitle(),
		Body:    i.GetBody(),
		State:   i.GetState(),
		HTMLURL: i.GetHTMLURL(),
	}
	if i.User != nil {
		out.User = &User{Login: i.User.GetLogin()}
	}
	for _, l := range i.Labels {
		out.Labels = append(out.Labels, Label{Name: l.GetName()})
	}
	for _, u := range i.Assignees {
		out.Assignees = append(out.Assignees, User{Login: u.GetLogin()})
	}
	if i.CreatedAt != nil {
		t := i.CreatedAt.Time
		out.CreatedAt = &t
	}
	if i.UpdatedAt != nil {
		t := i.UpdatedAt.Time
		out.UpdatedAt = &t
	}
	return out
}

func (i Issue) LabelNames() []string {
	out := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		if l.Name != "" {
			out = append(out, l.Name)
		}
	}
	return out
}

func (i Issue) AssigneeLogins() []string {
	out := make([]string, 0, len(i.Assignees))
	for _, u := range i.Assignees {
		if u.Login != "" {
			out = append(out, u.Login)
		}
	}
	return out
}

// IssueRequest is the body of issue create and update calls. Nil fields are
// omitted so an update leaves them alone; a non-nil empty list clears.
type IssueRequest struct {
	Title     *string
	Body      *string
	State     *string
	Labels    *[]string
	Assignees *[]string
}

func (r IssueRequest) toGitHub() *gh.IssueRequest {
	return &gh.IssueRequest{
		Title:     r.Title,
		Body:      r.Body,
		State:     r.State,
		Labels:    r.Labels,
		Assignees: r.Assignees,
	}
}

func String(s string) *string { return &s }

func Strings(v []string) *[]string {
	if v == nil {
		v = []string{}
	}
	return &v
}

type PullRequestRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body,omitempty"`
	Draft bool   `json:"draft,omitempty"`
}

type PullRequest struct {
	Number  int
	Title   string
	HTMLURL string
	Draft   bool
}

type Repository struct {
	FullName      string
	DefaultBranch string
	HTMLURL       string
}

// ContentRequest carries raw file bytes; they are base64-encoded on the wire.
type ContentRequest struct {
	Message string `json:"message"`
	Content []byte `json:"content"`
	Branch  string `json:"branch,omitempty"`
}

type ContentResponse struct {
	Content struct {
		Path        string
		DownloadURL string
		HTMLURL     string
	}
}
