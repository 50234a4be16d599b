package panel

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"gh-issues/internal/auth"
	"gh-issues/internal/config"
	"gh-issues/internal/github"
	"gh-issues/internal/issues"
)

type fakeAPI struct {
	mu     sync.Mutex
	calls  map[string]int
	issues map[string][]github.Issue
	single map[int]github.Issue

	listErr   error
	updateErr error
	panicList bool

	// listGate blocks ListIssues for a state until the channel is closed.
	listGate    map[string]chan struct{}
	listEntered chan string
	// putGate blocks CreateContent for paths containing the key.
	putGate    map[string]chan struct{}
	putEntered chan string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:  map[string]int{},
		issues: map[string][]github.Issue{},
		single: map[int]github.Issue{},
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.calls {
		n += v
	}
	return n
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) ListIssues(_ context.Context, _, _, state string) ([]github.Issue, error) {
	f.hit("list")
	if f.panicList {
		panic("list exploded")
	}
	f.mu.Lock()
	gate := f.listGate[state]
	f.mu.Unlock()
	if gate != nil {
		f.listEntered <- state
		<-gate
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issues[state], nil
}

func (f *fakeAPI) SearchIssues(_ context.Context, _, _ string) ([]github.Issue, error) {
	f.hit("search")
	return []github.Issue{}, nil
}

func (f *fakeAPI) GetIssue(_ context.Context, _, _ string, number int) (github.Issue, error) {
	f.hit("get")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.single[number], nil
}

func (f *fakeAPI) CreateIssue(_ context.Context, _, _ string, req github.IssueRequest) (github.Issue, error) {
	f.hit("create")
	return github.Issue{Number: 99, Title: *req.Title}, nil
}

func (f *fakeAPI) UpdateIssue(_ context.Context, _, _ string, number int, _ github.IssueRequest) (github.Issue, error) {
	f.hit("update")
	if f.updateErr != nil {
		return github.Issue{}, f.updateErr
	}
	return github.Issue{Number: number}, nil
}

func (f *fakeAPI) AddAssignees(_ context.Context, _, _ string, number int, _ []string) (github.Issue, error) {
	f.hit("assign")
	return github.Issue{Number: number}, nil
}

func (f *fakeAPI) ListLabels(context.Context, string, string) ([]string, error) {
	f.hit("labels")
	return []string{"bug", "docs"}, nil
}

func (f *fakeAPI) ListAssignees(context.Context, string, string) ([]string, error) {
	f.hit("assignees")
	return []string{"ana"}, nil
}

func (f *fakeAPI) CreatePull(_ context.Context, _, _ string, req github.PullRequestRequest) (github.PullRequest, error) {
	f.hit("pull")
	return github.PullRequest{Number: 5, HTMLURL: "https://github.com/o/r/pull/5"}, nil
}

func (f *fakeAPI) GetRepository(context.Context, string, string) (github.Repository, error) {
	f.hit("repo")
	return github.Repository{DefaultBranch: "main"}, nil
}

func (f *fakeAPI) CreateContent(_ context.Context, _, repo, path string, _ github.ContentRequest) (github.ContentResponse, error) {
	f.hit("put")
	f.mu.Lock()
	var gate chan struct{}
	var key string
	for k, g := range f.putGate {
		if strings.Contains(path, k) {
			gate, key = g, k
		}
	}
	f.mu.Unlock()
	if gate != nil {
		f.putEntered <- key
		<-gate
	}
	var resp github.ContentResponse
	resp.Content.Path = path
	resp.Content.DownloadURL = "https://raw.example/" + repo + "/" + path
	return resp, nil
}

type fakeRepos struct {
	mu     sync.Mutex
	active string
}

func (r *fakeRepos) set(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = v
}

func (r *fakeRepos) Resolve(context.Context) (string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == "" {
		return "", nil
	}
	return r.active, []string{r.active}
}

type fakeTokens struct {
	token string
	err   error
}

func (f fakeTokens) Token(context.Context) (string, error) { return f.token, f.err }

type memTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *memTokenStore) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokenStore) Set(t string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = t
	return nil
}

type recordSink struct {
	mu   sync.Mutex
	msgs []Message
}

func (s *recordSink) Post(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
}

func (s *recordSink) all() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.msgs...)
}

func (s *recordSink) renders() []Render {
	var out []Render
	for _, m := range s.all() {
		if r, ok := m.(Render); ok {
			out = append(out, r)
		}
	}
	return out
}

func (s *recordSink) last() Message {
	msgs := s.all()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (s *recordSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
}

type fakeClipboard struct{ text string }

func (c *fakeClipboard) WriteText(t string) error {
	c.text = t
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	ctrl  *Controller
	api   *fakeAPI
	repos *fakeRepos
	sink  *recordSink
	store *config.Store
	clock *clock
	clip  *fakeClipboard
	pat   *memTokenStore
}

type harnessOption func(*issues.Service)

func withTokenError(err error) harnessOption {
	return func(s *issues.Service) { s.Tokens = fakeTokens{err: err} }
}

func newHarness(t *testing.T, repoName string, opts ...harnessOption) *harness {
	t.Helper()
	store, err := config.OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	h := &harness{
		api:   newFakeAPI(),
		repos: &fakeRepos{active: repoName},
		sink:  &recordSink{},
		store: store,
		clock: &clock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		clip:  &fakeClipboard{},
		pat:   &memTokenStore{},
	}
	svc := issues.Service{API: h.api, Repos: h.repos, Tokens: fakeTokens{token: "tok"}}
	for _, opt := range opts {
		opt(&svc)
	}
	h.ctrl = New(Deps{
		Service:   svc,
		Content:   h.api,
		Store:     store,
		Tokens:    h.pat,
		Clipboard: h.clip,
		Now:       h.clock.Now,
		Location:  time.UTC,
		Nonce:     func() string { return "n0n0n0" },
	})
	h.ctrl.Attach(h.sink)
	return h
}

func (h *harness) handle(i Intent) {
	h.ctrl.Handle(context.Background(), i)
}

var _ auth.TokenStore = (*memTokenStore)(nil)
