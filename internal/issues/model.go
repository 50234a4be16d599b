package issues

import (
	"fmt"
	"strings"
	"time"

	"gh-issues/internal/github"
)

const updatedLayout = "2006-01-02 15:04"

// ViewModel is the list row sent to the view.
type ViewModel struct {
	Number    int      `json:"number" yaml:"number"`
	Title     string   `json:"title" yaml:"title"`
	State     string   `json:"state" yaml:"state"`
	User      string   `json:"user" yaml:"user"`
	UpdatedAt string   `json:"updatedAt" yaml:"updatedAt"`
	Labels    []string `json:"labels" yaml:"labels"`
	Assignees []string `json:"assignees" yaml:"assignees"`
	HTMLURL   string   `json:"htmlUrl" yaml:"htmlUrl"`
}

// EditorModel carries what the editor needs to submit an update.
type EditorModel struct {
	Number    int      `json:"number,omitempty"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels"`
	Assignees []string `json:"assignees"`
}

func ToViewModel(issue github.Issue, loc *time.Location) ViewModel {
	return ViewModel{
		Number:    issue.Number,
		Title:     issue.Title,
		State:     orDefault(issue.State, "unknown"),
		User:      author(issue),
		UpdatedAt: FormatTime(issue.UpdatedAt, loc),
		Labels:    issue.LabelNames(),
		Assignees: issue.AssigneeLogins(),
		HTMLURL:   issue.HTMLURL,
	}
}

func ToViewModels(list []github.Issue, loc *time.Location) []ViewModel {
	out := make([]ViewModel, 0, len(list))
	for _, issue := range list {
		out = append(out, ToViewModel(issue, loc))
	}
	return out
}

func ToEditorModel(issue github.Issue) EditorModel {
	return EditorModel{
		Number:    issue.Number,
		Title:     issue.Title,
		Body:      issue.Body,
		Labels:    issue.LabelNames(),
		Assignees: issue.AssigneeLogins(),
	}
}

func FormatTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return "unknown"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(updatedLayout)
}

// SummaryMarkdown renders a read-only overview of one issue.
func SummaryMarkdown(issue github.Issue, loc *time.Location) string {
	labels := strings.Join(issue.LabelNames(), ", ")
	assignees := strings.Join(issue.AssigneeLogins(), ", ")
	body := strings.TrimSpace(issue.Body)
	if body == "" {
		body = "_No description provided._"
	}
	lines := []string{
		fmt.Sprintf("# #%d %s", issue.Number, issue.Title),
		"",
		"- State: " + orDefault(issue.State, "unknown"),
		"- Author: " + author(issue),
		"- Updated: " + FormatTime(issue.UpdatedAt, loc),
		"- Labels: " + orDefault(labels, "none"),
		"- Assignees: " + orDefault(assignees, "none"),
		"- URL: " + issue.HTMLURL,
		"",
		"---",
		"",
		body,
		"",
	}
	return strings.Join(lines, "\n")
}

func author(issue github.Issue) string {
	if issue.User == nil {
		return "unknown"
	}
	return orDefault(issue.User.Login, "unknown")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
