package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gh-issues/internal/auth"
	"gh-issues/internal/config"
	"gh-issues/internal/github"
	"gh-issues/internal/issues"
	"gh-issues/internal/logging"
	"gh-issues/internal/upload"
)

// Sink receives messages for the attached view.
type Sink interface {
	Post(msg Message)
}

type ConfigStore interface {
	Config() config.Config
	UpdateConfig(fn func(*config.Config)) error
	State() config.State
	SaveState(st config.State) error
}

type Clipboard interface {
	WriteText(text string) error
}

type ExternalOpener interface {
	Open(ctx context.Context, url string) error
}

type Deps struct {
	Service   issues.Service
	Content   upload.ContentAPI
	Store     ConfigStore
	Tokens    auth.TokenStore
	Clipboard Clipboard
	Opener    ExternalOpener
	Logger    *slog.Logger
	Now       func() time.Time
	Location  *time.Location
	Nonce     func() string
}

// Controller turns view intents into API calls and pushes state back. All
// session reads and writes, and every push, happen under mu so that a
// view never observes a torn snapshot.
type Controller struct {
	deps   Deps
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	sink       Sink
	sess       *session
	generation uint64
}

func New(deps Deps) *Controller {
	c := &Controller{
		deps:   deps,
		logger: logging.OrDiscard(deps.Logger).With("component", "panel"),
		now:    deps.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.sess = c.newSession()
	return c
}

func (c *Controller) newSession() *session {
	st := c.deps.Store.State()
	filter, ok := issues.ParseFilter(st.Filter)
	if !ok {
		filter, ok = issues.ParseFilter(c.deps.Store.Config().DefaultIssueFilter)
		if !ok {
			filter = issues.FilterOpen
		}
	}
	s := &session{filter: filter, search: strings.TrimSpace(st.Search)}
	s.resetIssues()
	return s
}

// Attach binds a view and starts a fresh session for it. Fetches begun for
// an earlier session can no longer land.
func (c *Controller) Attach(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = s
	c.sess = c.newSession()
	c.generation++
}

// Detach drops the view. Work still in flight completes but its pushes are
// discarded.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = nil
	c.sess = c.newSession()
	c.generation++
}

func (c *Controller) post(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postLocked(msg)
}

func (c *Controller) postLocked(msg Message) {
	if c.sink == nil {
		return
	}
	c.sink.Post(msg)
}

// Handle processes one intent to completion. It never panics and never
// returns an error; failures reach the view as messages.
func (c *Controller) Handle(ctx context.Context, intent Intent) {
	if intent == nil {
		return
	}
	kind := IntentType(intent)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("intent handler panicked", "intent", kind, "panic", r)
			c.post(ErrorNotice{Message: fmt.Sprintf("unexpected error: %v", r)})
		}
	}()
	if err := c.dispatch(ctx, intent); err != nil {
		c.logger.Warn("intent failed", "intent", kind, "err", err)
		c.post(ErrorNotice{Message: err.Error()})
	}
}

func (c *Controller) dispatch(ctx context.Context, intent Intent) error {
	switch in := intent.(type) {
	case Ready, Refresh:
		c.refresh(ctx)
	case Search:
		c.setSearch(ctx, in.Value)
	case ClearSearch:
		c.setSearch(ctx, "")
	case SetFilter:
		c.setFilter(ctx, in.Value)
	case CreateIssue:
		return c.saveIssue(ctx, 0, in.fields())
	case UpdateIssue:
		if in.Number <= 0 {
			return nil
		}
		return c.saveIssue(ctx, in.Number, in.fields())
	case SetIssueState:
		return c.setIssueState(ctx, in)
	case RequestMeta:
		return c.requestMeta(ctx)
	case LoadIssueForEdit:
		return c.loadIssueForEdit(ctx, in.Number)
	case UploadImage:
		c.uploadImage(ctx, in)
	case OpenIssue:
		return c.openIssue(ctx, in.URL)
	case CopyIssue:
		return c.copyIssue(in.URL)
	case SummaryIssue:
		return c.summaryIssue(ctx, in.Number)
	case SetRepo:
		return c.setRepo(ctx, in.Value)
	case SetAuthMode:
		return c.setAuthMode(ctx, in.Mode)
	case SetToken:
		return c.setToken(ctx, in.Token)
	case CreatePullRequest:
		return c.createPullRequest(ctx, in)
	case AssignIssue:
		return c.assignIssue(ctx, in)
	default:
		c.logger.Debug("ignoring unknown intent", "intent", IntentType(intent))
	}
	return nil
}

func (c *Controller) beginFetch() (uint64, issues.Filter, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation, c.sess.filter, c.sess.search
}

// refresh resolves repository and credentials, fetches the list and pushes
// exactly one snapshot, unless a newer fetch was started meanwhile.
func (c *Controller) refresh(ctx context.Context) {
	gen, filter, search := c.beginFetch()

	active, candidates := c.deps.Service.Repos.Resolve(ctx)
	snap := Render{
		Repo:           active,
		RepoCandidates: candidates,
		AuthMode:       c.deps.Store.Config().AuthMode,
		Filter:         filter,
		Search:         search,
		Issues:         []issues.ViewModel{},
	}
	if snap.RepoCandidates == nil {
		snap.RepoCandidates = []string{}
	}
	if active == "" {
		snap.Status = StatusNoRepo
		snap.Error = issues.ErrNoRepository.Error()
		c.publish(gen, snap, "", nil)
		return
	}

	token, err := c.deps.Service.Tokens.Token(ctx)
	if err != nil {
		snap.Status = StatusNoAuth
		snap.Error = err.Error()
		var noAuth *auth.NoAuthError
		if errors.As(err, &noAuth) {
			snap.Reason = string(noAuth.Reason)
		}
		c.publish(gen, snap, "", nil)
		return
	}

	list, err := c.deps.Service.Fetch(ctx, issues.Target{Repo: active, Token: token}, filter, search)
	if err != nil {
		snap.Status = StatusError
		snap.Error = err.Error()
		c.publish(gen, snap, "", nil)
		return
	}
	snap.Status = StatusOK
	snap.Issues = issues.ToViewModels(list, c.deps.Location)
	c.publish(gen, snap, active, list)
}

// publish replaces the issue cache with the list behind snap and pushes
// snap, both only when gen is still the newest fetch.
func (c *Controller) publish(gen uint64, snap Render, repoName string, list []github.Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug("discarding stale list", "generation", gen, "current", c.generation)
		return
	}
	c.sess.resetIssues()
	c.sess.cacheRepo = repoName
	for _, issue := range list {
		c.sess.issueCache[issue.Number] = issue
	}
	c.postLocked(snap)
}

func (c *Controller) persistView() {
	c.mu.Lock()
	st := config.State{Filter: string(c.sess.filter), Search: c.sess.search}
	c.mu.Unlock()
	if err := c.deps.Store.SaveState(st); err != nil {
		c.logger.Warn("persist view state", "err", err)
	}
}

func (c *Controller) setSearch(ctx context.Context, value string) {
	c.mu.Lock()
	c.sess.search = strings.TrimSpace(value)
	c.sess.resetIssues()
	c.mu.Unlock()
	c.persistView()
	c.refresh(ctx)
}

func (c *Controller) setFilter(ctx context.Context, value string) {
	filter, ok := issues.ParseFilter(value)
	if !ok {
		c.logger.Debug("ignoring invalid filter", "value", value)
		return
	}
	c.mu.Lock()
	c.sess.filter = filter
	c.sess.resetIssues()
	c.mu.Unlock()
	c.persistView()
	c.refresh(ctx)
}
