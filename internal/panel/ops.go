package panel

import (
	"context"
	"fmt"
	"strings"

	"gh-issues/internal/auth"
	"gh-issues/internal/config"
	"gh-issues/internal/github"
	"gh-issues/internal/issues"
	"gh-issues/internal/repo"
	"gh-issues/internal/upload"
)

const autoRepo = "__auto__"

func (c *Controller) saveIssue(ctx context.Context, number int, raw issues.Fields) error {
	fields, err := raw.Normalize()
	if err != nil {
		return err
	}
	t, err := c.deps.Service.Target(ctx)
	if err != nil {
		return err
	}
	mode := SavedCreate
	var saved github.Issue
	if number == 0 {
		saved, err = c.deps.Service.Create(ctx, t, fields)
	} else {
		mode = SavedEdit
		saved, err = c.deps.Service.Update(ctx, t, number, fields)
	}
	if err != nil {
		return err
	}
	c.post(IssueSaved{Mode: mode})
	if mode == SavedCreate {
		c.post(Notice{Message: fmt.Sprintf("Created issue #%d.", saved.Number)})
	} else {
		c.post(Notice{Message: fmt.Sprintf("Updated issue #%d.", number)})
	}
	c.refresh(ctx)
	return nil
}

func (c *Controller) setIssueState(ctx context.Context, in SetIssueState) error {
	if in.Number <= 0 || (in.State != "open" && in.State != "closed") {
		c.logger.Debug("ignoring malformed state change", "number", in.Number, "state", in.State)
		return nil
	}
	t, err := c.deps.Service.Target(ctx)
	if err != nil {
		return err
	}
	if _, err := c.deps.Service.SetState(ctx, t, in.Number, in.State); err != nil {
		return err
	}
	verb := "closed"
	if in.State == "open" {
		verb = "reopened"
	}
	c.post(Notice{Message: fmt.Sprintf("Issue #%d %s.", in.Number, verb)})
	c.refresh(ctx)
	return nil
}

// ensureMeta returns labels and assignees for t.Repo, fetching them when
// the cache belongs to another repository or has gone stale.
func (c *Controller) ensureMeta(ctx context.Context, t issues.Target) (Meta, error) {
	c.mu.Lock()
	cached := c.sess.meta
	c.mu.Unlock()
	if cached.freshFor(t.Repo, c.now()) {
		return cached.message(), nil
	}
	meta, err := c.deps.Service.FetchMeta(ctx, t)
	if err != nil {
		return Meta{}, err
	}
	entry := metaCache{
		repo:      t.Repo,
		labels:    meta.Labels,
		assignees: meta.Assignees,
		fetchedAt: c.now(),
	}
	c.mu.Lock()
	c.sess.meta = entry
	c.mu.Unlock()
	return entry.message(), nil
}

func (c *Controller) requestMeta(ctx context.Context) error {
	t, err := c.deps.Service.Target(ctx)
	if err != nil {
		return err
	}
	meta, err := c.ensureMeta(ctx, t)
	if err != nil {
		return err
	}
	c.post(meta)
	return nil
}

func (c *Controller) lookup(ctx context.Context, t issues.Target, number int, remember bool) (github.Issue, error) {
	c.mu.Lock()
	issue, ok := c.sess.cached(t.Repo, number)
	c.mu.Unlock()
	if ok {
		return issue, nil
	}
	issue, err := c.deps.Service.Get(ctx, t, number)
	if err != nil {
		return github.Issue{}, err
	}
	if remember {
		c.mu.Lock()
		if c.sess.cacheRepo == t.Repo {
			c.sess.issueCache[number] = issue
		}
		c.mu.Unlock()
	}
	return issue, nil
}

func (c *Controller) loadIssueForEdit(ctx context.Context, number int) error {
	if number <= 0 {
		return nil
	}
	t, err := c.deps.Service.Target(ctx)
	if err != nil {
		return err
	}
	issue, err := c.lookup(ctx, t, number, true)
	if err != nil {
		return err
	}
	meta, err := c.ensureMeta(ctx, t)
	if err != nil {
		return err
	}
	c.post(EditData{Issue: issues.ToEditorModel(issue), Meta: meta})
	return nil
}

func (c *Controller) pipeline() upload.Pipeline {
	p := upload.ForConfig(c.deps.Content, c.deps.Store.Config())
	p.Now = c.now
	p.Nonce = c.deps.Nonce
	return p
}

// uploadImage always answers with a message tagged by the request id, so
// concurrent uploads can finish in any order.
func (c *Controller) uploadImage(ctx context.Context, in UploadImage) {
	if in.RequestID == "" {
		c.logger.Debug("ignoring upload without request id")
		return
	}
	fail := func(err error) {
		c.logger.Warn("image upload failed", "request", in.RequestID, "err", err)
		c.post(ImageUploadError{RequestID: in.RequestID, Message: err.Error()})
	}
	p := c.pipeline()
	prep, err := p.Prepare(upload.Request{Name: in.Name, MIME: in.MIME, Data: in.Data})
	if err != nil {
		fail(err)
		return
	}
	t, err := c.deps.Service.Target(ctx)
	if err != nil {
		fail(err)
		return
	}
	res, err := p.Upload(ctx, t.Token, t.Repo, prep)
	if err != nil {
		fail(err)
		return
	}
	c.post(ImageUploaded{
		RequestID: in.RequestID,
		URL:       res.URL,
		Markdown:  res.Markdown,
		Path:      res.Path,
		Name:      res.Name,
	})
}

func (c *Controller) openIssue(ctx context.Context, url string) error {
	if url == "" || c.deps.Opener == nil {
		return nil
	}
	return c.deps.Opener.Open(ctx, url)
}

func (c *Controller) copyIssue(url string) error {
	if url == "" || c.deps.Clipboard == nil {
		return nil
	}
	if err := c.deps.Clipboard.WriteText(url); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	c.post(Notice{Message: "Copied issue URL to clipboard."})
	return nil
}

func (c *Controller) summaryIssue(ctx context.Context, number int) error {
	if number <= 0 {
		return nil
	}
	t, err := c.deps.Service.Target(ctx)
	if err != nil {
		return err
	}
	issue, err := c.lookup(ctx, t, number, false)
	if err != nil {
		return err
	}
	c.post(Document{
		Title:    fmt.Sprintf("#%d %s", issue.Number, issue.Title),
		Markdown: issues.SummaryMarkdown(issue, c.deps.Location),
	})
	return nil
}

func (c *Controller) setRepo(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == autoRepo {
		value = ""
	}
	if value != "" && !repo.Valid(value) {
		return &issues.ValidationError{Field: "repository", Reason: "must look like owner/name"}
	}
	if err := c.deps.Store.UpdateConfig(func(cfg *config.Config) { cfg.Repo = value }); err != nil {
		return err
	}
	c.mu.Lock()
	c.sess.meta = metaCache{}
	c.sess.resetIssues()
	c.mu.Unlock()
	c.refresh(ctx)
	return nil
}

func (c *Controller) setAuthMode(ctx context.Context, value string) error {
	mode, ok := auth.ParseMode(value)
	if !ok {
		c.logger.Debug("ignoring invalid auth mode", "value", value)
		return nil
	}
	if err := c.deps.Store.UpdateConfig(func(cfg *config.Config) { cfg.AuthMode = string(mode) }); err != nil {
		return err
	}
	c.refresh(ctx)
	return nil
}

func (c *Controller) setToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return &issues.ValidationError{Field: "token", Reason: "is required"}
	}
	if c.deps.Tokens == nil {
		return fmt.Errorf("token storage unavailable")
	}
	if err := c.deps.Tokens.Set(token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	c.post(Notice{Message: "Token saved."})
	c.refresh(ctx)
	return nil
}

func (c *Controller) createPullRequest(ctx context.Context, in CreatePullRequest) error {
	t, err := c.deps.Service.Target(ctx)
	if err != nil {
		return err
	}
	pr, err := c.deps.Service.CreatePull(ctx, t, issues.PullFields{
		Title: in.Title,
		Head:  in.Head,
		Base:  in.Base,
		Body:  in.Body,
		Draft: in.Draft,
	}, c.deps.Store.Config().DefaultBaseBranch)
	if err != nil {
		return err
	}
	c.post(Notice{Message: fmt.Sprintf("Created pull request #%d: %s", pr.Number, pr.HTMLURL)})
	return nil
}

func (c *Controller) assignIssue(ctx context.Context, in AssignIssue) error {
	if in.Number <= 0 {
		return nil
	}
	t, err := c.deps.Service.Target(ctx)
	if err != nil {
		return err
	}
	if _, err := c.deps.Service.Assign(ctx, t, in.Number, in.Assignees); err != nil {
		return err
	}
	c.post(Notice{Message: fmt.Sprintf("Assigned issue #%d to %s.", in.Number, strings.Join(in.Assignees, ", "))})
	c.refresh(ctx)
	return nil
}
