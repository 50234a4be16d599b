package panel

import (
	"gh-issues/internal/issues"
)

// Intent is a request from the view. The set is closed: only the types in
// this file implement it.
type Intent interface {
	intentType() string
}

// IntentType returns the wire tag of an intent.
func IntentType(i Intent) string {
	if i == nil {
		return ""
	}
	return i.intentType()
}

type Ready struct{}

type Refresh struct{}

type Search struct {
	Value string `json:"value"`
}

type ClearSearch struct{}

type SetFilter struct {
	Value string `json:"value"`
}

type CreateIssue struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Labels    List   `json:"labels"`
	Assignees List   `json:"assignees"`
}

type UpdateIssue struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Labels    List   `json:"labels"`
	Assignees List   `json:"assignees"`
}

type SetIssueState struct {
	Number int    `json:"number"`
	State  string `json:"state"`
}

type RequestMeta struct{}

type LoadIssueForEdit struct {
	Number int `json:"number"`
}

type UploadImage struct {
	RequestID string `json:"requestId"`
	Name      string `json:"name"`
	MIME      string `json:"mime"`
	Data      string `json:"data"`
}

type OpenIssue struct {
	URL string `json:"url"`
}

type CopyIssue struct {
	URL string `json:"url"`
}

type SummaryIssue struct {
	Number int `json:"number"`
}

// SetRepo pins the repository. An empty value or "__auto__" returns to
// remote detection.
type SetRepo struct {
	Value string `json:"value"`
}

type SetAuthMode struct {
	Mode string `json:"mode"`
}

type SetToken struct {
	Token string `json:"token"`
}

type CreatePullRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body"`
	Draft bool   `json:"draft"`
}

type AssignIssue struct {
	Number    int  `json:"number"`
	Assignees List `json:"assignees"`
}

func (Ready) intentType() string             { return "ready" }
func (Refresh) intentType() string           { return "refresh" }
func (Search) intentType() string            { return "search" }
func (ClearSearch) intentType() string       { return "clearSearch" }
func (SetFilter) intentType() string         { return "setFilter" }
func (CreateIssue) intentType() string       { return "createIssue" }
func (UpdateIssue) intentType() string       { return "updateIssue" }
func (SetIssueState) intentType() string     { return "setIssueState" }
func (RequestMeta) intentType() string       { return "requestMeta" }
func (LoadIssueForEdit) intentType() string  { return "loadIssueForEdit" }
func (UploadImage) intentType() string       { return "uploadImage" }
func (OpenIssue) intentType() string         { return "openIssue" }
func (CopyIssue) intentType() string         { return "copyIssue" }
func (SummaryIssue) intentType() string      { return "summaryIssue" }
func (SetRepo) intentType() string           { return "setRepo" }
func (SetAuthMode) intentType() string       { return "setAuthMode" }
func (SetToken) intentType() string          { return "setToken" }
func (CreatePullRequest) intentType() string { return "createPullRequest" }
func (AssignIssue) intentType() string       { return "assignIssue" }

func (c CreateIssue) fields() issues.Fields {
	return issues.Fields{Title: c.Title, Body: c.Body, Labels: c.Labels, Assignees: c.Assignees}
}

func (u UpdateIssue) fields() issues.Fields {
	return issues.Fields{Title: u.Title, Body: u.Body, Labels: u.Labels, Assignees: u.Assignees}
}

// Message is pushed from the controller to the view.
type Message interface {
	messageType() string
}

func MessageType(m Message) string {
	if m == nil {
		return ""
	}
	return m.messageType()
}

type Status string

const (
	StatusNoRepo Status = "noRepo"
	StatusNoAuth Status = "noAuth"
	StatusError  Status = "error"
	StatusOK     Status = "ok"
)

// Render is the full state snapshot. Exactly one Status applies; Issues is
// only populated for StatusOK.
type Render struct {
	Status         Status             `json:"status"`
	Repo           string             `json:"repo"`
	RepoCandidates []string           `json:"repoCandidates"`
	AuthMode       string             `json:"authMode"`
	Filter         issues.Filter      `json:"filter"`
	Search         string             `json:"search"`
	Issues         []issues.ViewModel `json:"issues"`
	Error          string             `json:"error,omitempty"`
	Reason         string             `json:"reason,omitempty"`
}

type Meta struct {
	Repo      string   `json:"repo"`
	Labels    []string `json:"labels"`
	Assignees []string `json:"assignees"`
}

type EditData struct {
	Issue issues.EditorModel `json:"issue"`
	Meta  Meta               `json:"meta"`
}

const (
	SavedCreate = "create"
	SavedEdit   = "edit"
)

type IssueSaved struct {
	Mode string `json:"mode"`
}

type ImageUploaded struct {
	RequestID string `json:"requestId"`
	URL       string `json:"url"`
	Markdown  string `json:"markdown"`
	Path      string `json:"path"`
	Name      string `json:"name"`
}

type ImageUploadError struct {
	RequestID string `json:"requestId"`
	Message   string `json:"message"`
}

type ErrorNotice struct {
	Message string `json:"message"`
}

type Notice struct {
	Message string `json:"message"`
}

// Document asks the host to show read-only markdown, such as an issue
// summary.
type Document struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

func (Render) messageType() string           { return "render" }
func (Meta) messageType() string             { return "meta" }
func (EditData) messageType() string         { return "editData" }
func (IssueSaved) messageType() string       { return "issueSaved" }
func (ImageUploaded) messageType() string    { return "imageUploaded" }
func (ImageUploadError) messageType() string { return "imageUploadError" }
func (ErrorNotice) messageType() string      { return "error" }
func (Notice) messageType() string           { return "notice" }
func (Document) messageType() string         { return "document" }
