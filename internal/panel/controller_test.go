package panel

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"gh-issues/internal/auth"
	"gh-issues/internal/config"
	"gh-issues/internal/github"
	"gh-issues/internal/upload"
)

func TestReadyWithoutRepositoryIsNoRepo(t *testing.T) {
	h := newHarness(t, "")
	h.handle(Ready{})

	renders := h.sink.renders()
	if len(renders) != 1 {
		t.Fatalf("expected one render, got %d", len(renders))
	}
	if renders[0].Status != StatusNoRepo {
		t.Fatalf("status = %s", renders[0].Status)
	}
	if h.api.total() != 0 {
		t.Fatalf("no API calls expected, got %v", h.api.calls)
	}
}

func TestReadyWithoutTokenIsNoAuth(t *testing.T) {
	h := newHarness(t, "o/r", withTokenError(&auth.NoAuthError{Reason: auth.ReasonNotConfigured}))
	h.handle(Ready{})

	r := h.sink.renders()[0]
	if r.Status != StatusNoAuth {
		t.Fatalf("status = %s", r.Status)
	}
	if r.Reason != string(auth.ReasonNotConfigured) {
		t.Fatalf("reason = %q", r.Reason)
	}
	if r.Repo != "o/r" || r.Error == "" {
		t.Fatalf("unexpected snapshot: %+v", r)
	}
}

func TestReadyListsIssues(t *testing.T) {
	h := newHarness(t, "o/r")
	h.api.issues["open"] = []github.Issue{{Number: 1, Title: "first", State: "open"}}
	h.handle(Ready{})

	r := h.sink.renders()[0]
	if r.Status != StatusOK || r.Filter != "open" || r.Repo != "o/r" {
		t.Fatalf("unexpected snapshot: %+v", r)
	}
	if len(r.Issues) != 1 || r.Issues[0].Number != 1 {
		t.Fatalf("unexpected issues: %+v", r.Issues)
	}
}

func TestListFailureIsErrorStatus(t *testing.T) {
	h := newHarness(t, "o/r")
	h.api.listErr = &github.APIError{StatusCode: 403, Message: "Resource not accessible"}
	h.handle(Refresh{})

	r := h.sink.renders()[0]
	if r.Status != StatusError || !strings.Contains(r.Error, "Resource not accessible (403)") {
		t.Fatalf("unexpected snapshot: %+v", r)
	}
	if len(r.Issues) != 0 {
		t.Fatalf("error snapshot must not carry issues")
	}
}

func TestSetFilterInvalidIsNoOp(t *testing.T) {
	h := newHarness(t, "o/r")
	for _, v := range []string{"", "OPEN", "merged", "all "} {
		h.handle(SetFilter{Value: v})
	}
	if len(h.sink.all()) != 0 {
		t.Fatalf("invalid filters must not push: %v", h.sink.all())
	}
	if h.api.total() != 0 {
		t.Fatalf("invalid filters must not fetch: %v", h.api.calls)
	}
	if st := h.store.State(); st.Filter != "" {
		t.Fatalf("invalid filter persisted: %+v", st)
	}
}

func TestSetFilterPersistsAndRefetches(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(SetFilter{Value: "closed"})

	r := h.sink.renders()[0]
	if r.Filter != "closed" {
		t.Fatalf("filter = %s", r.Filter)
	}
	if h.store.State().Filter != "closed" {
		t.Fatalf("filter not persisted: %+v", h.store.State())
	}
	// a fresh session picks the persisted filter up
	h.ctrl.Detach()
	h.ctrl.Attach(h.sink)
	h.sink.reset()
	h.handle(Ready{})
	if got := h.sink.renders()[0].Filter; got != "closed" {
		t.Fatalf("persisted filter not restored: %s", got)
	}
}

func TestClearSearchMatchesEmptySearch(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(Search{Value: "crash"})
	if got := h.sink.renders()[0].Search; got != "crash" {
		t.Fatalf("search = %q", got)
	}

	h.sink.reset()
	h.handle(ClearSearch{})
	afterClear := h.sink.renders()

	h.sink.reset()
	h.handle(Search{Value: "   "})
	afterSearch := h.sink.renders()

	if diff := cmp.Diff(afterClear, afterSearch); diff != "" {
		t.Fatalf("clearSearch and search(\"\") differ:\n%s", diff)
	}
	if afterClear[0].Search != "" {
		t.Fatalf("search not cleared: %+v", afterClear[0])
	}
}

func TestCreateIssueBlankTitleMakesNoCalls(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(CreateIssue{Title: "   ", Body: "x"})

	if h.api.total() != 0 {
		t.Fatalf("expected zero API calls, got %v", h.api.calls)
	}
	msgs := h.sink.all()
	if len(msgs) != 1 {
		t.Fatalf("expected one error notice, got %v", msgs)
	}
	if n, ok := msgs[0].(ErrorNotice); !ok || !strings.Contains(n.Message, "title") {
		t.Fatalf("unexpected message: %#v", msgs[0])
	}
}

func TestCreateIssueAcknowledgesThenRefreshes(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(CreateIssue{Title: " New ", Labels: List{"bug", "bug"}})

	msgs := h.sink.all()
	if len(msgs) < 2 {
		t.Fatalf("expected ack and render, got %v", msgs)
	}
	saved, ok := msgs[0].(IssueSaved)
	if !ok || saved.Mode != SavedCreate {
		t.Fatalf("first message should be the save ack: %#v", msgs[0])
	}
	if _, ok := h.sink.last().(Render); !ok {
		t.Fatalf("last message should be a render: %#v", h.sink.last())
	}
	if h.api.count("create") != 1 || h.api.count("list") != 1 {
		t.Fatalf("unexpected calls: %v", h.api.calls)
	}
}

func TestUpdateIssueFailureDoesNotAcknowledge(t *testing.T) {
	h := newHarness(t, "o/r")
	h.api.updateErr = &github.APIError{StatusCode: 422, Message: "Validation Failed"}
	h.handle(UpdateIssue{Number: 3, Title: "x"})

	for _, m := range h.sink.all() {
		if _, ok := m.(IssueSaved); ok {
			t.Fatalf("failed save must not acknowledge")
		}
	}
	n, ok := h.sink.last().(ErrorNotice)
	if !ok || !strings.Contains(n.Message, "Validation Failed (422)") {
		t.Fatalf("expected error notice, got %#v", h.sink.last())
	}
}

func TestLoadIssueForEditUsesCache(t *testing.T) {
	h := newHarness(t, "o/r")
	h.api.issues["open"] = []github.Issue{{Number: 1, Title: "cached", Body: "b"}}
	h.api.single[2] = github.Issue{Number: 2, Title: "remote"}
	h.handle(Ready{})

	h.handle(LoadIssueForEdit{Number: 1})
	if h.api.count("get") != 0 {
		t.Fatalf("cached issue should not be fetched")
	}
	edit, ok := h.sink.last().(EditData)
	if !ok || edit.Issue.Title != "cached" || edit.Issue.Body != "b" {
		t.Fatalf("unexpected edit data: %#v", h.sink.last())
	}
	if diff := cmp.Diff([]string{"bug", "docs"}, edit.Meta.Labels); diff != "" {
		t.Fatalf("meta missing from edit data:\n%s", diff)
	}

	h.handle(LoadIssueForEdit{Number: 2})
	if h.api.count("get") != 1 {
		t.Fatalf("absent issue should be fetched exactly once, got %d", h.api.count("get"))
	}
	h.handle(LoadIssueForEdit{Number: 2})
	if h.api.count("get") != 1 {
		t.Fatalf("fetched issue should be cached, got %d calls", h.api.count("get"))
	}
}

func TestRequestMetaFreshness(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(RequestMeta{})
	h.handle(RequestMeta{})
	if h.api.count("labels") != 1 || h.api.count("assignees") != 1 {
		t.Fatalf("second request within window should hit cache: %v", h.api.calls)
	}
	meta, ok := h.sink.last().(Meta)
	if !ok || meta.Repo != "o/r" || len(meta.Assignees) != 1 {
		t.Fatalf("unexpected meta: %#v", h.sink.last())
	}

	h.clock.Advance(MetaFreshness + time.Second)
	h.handle(RequestMeta{})
	if h.api.count("labels") != 2 {
		t.Fatalf("stale meta should be refetched: %v", h.api.calls)
	}
}

func TestRequestMetaAfterRepositoryChange(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(RequestMeta{})
	h.repos.set("o/other")
	h.handle(RequestMeta{})
	if h.api.count("labels") != 2 || h.api.count("assignees") != 2 {
		t.Fatalf("repository change must refetch: %v", h.api.calls)
	}
	if meta := h.sink.last().(Meta); meta.Repo != "o/other" {
		t.Fatalf("meta repo = %q", meta.Repo)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(UploadImage{RequestID: "r1", Name: "a.txt", MIME: "text/plain", Data: "aGk="})

	if h.api.total() != 0 {
		t.Fatalf("no remote call expected: %v", h.api.calls)
	}
	e, ok := h.sink.last().(ImageUploadError)
	if !ok || e.RequestID != "r1" || e.Message != "unsupported image type" {
		t.Fatalf("unexpected message: %#v", h.sink.last())
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	h := newHarness(t, "o/r")
	if err := h.store.UpdateConfig(func(c *config.Config) { c.Images.MaxSizeMB = 0.000001 }); err != nil {
		t.Fatalf("update config: %v", err)
	}
	h.handle(UploadImage{RequestID: "r2", Name: "a.png", MIME: "image/png", Data: "aGVsbG8gd29ybGQ="})

	if h.api.total() != 0 {
		t.Fatalf("no remote call expected: %v", h.api.calls)
	}
	e, ok := h.sink.last().(ImageUploadError)
	if !ok || e.RequestID != "r2" || !strings.Contains(e.Message, "limit") {
		t.Fatalf("unexpected message: %#v", h.sink.last())
	}
}

func TestConcurrentUploadsCorrelateOutOfOrder(t *testing.T) {
	h := newHarness(t, "o/r")
	gateA := make(chan struct{})
	h.api.putGate = map[string]chan struct{}{"-a.png": gateA}
	h.api.putEntered = make(chan string, 1)

	done := make(chan struct{})
	go func() {
		h.handle(UploadImage{RequestID: "A", Name: "a.png", MIME: "image/png", Data: "aGk="})
		close(done)
	}()
	<-h.api.putEntered

	h.handle(UploadImage{RequestID: "B", Name: "b.png", MIME: "image/png", Data: "aGk="})
	close(gateA)
	<-done

	var order []string
	for _, m := range h.sink.all() {
		up, ok := m.(ImageUploaded)
		if !ok {
			t.Fatalf("unexpected message: %#v", m)
		}
		order = append(order, up.RequestID)
		wantStem := "-" + strings.ToLower(up.RequestID) + ".png"
		if !strings.HasSuffix(up.Path, wantStem) || !strings.Contains(up.Markdown, up.URL) {
			t.Fatalf("ack %s carries the wrong upload: %+v", up.RequestID, up)
		}
	}
	if diff := cmp.Diff([]string{"B", "A"}, order); diff != "" {
		t.Fatalf("ack order mismatch:\n%s", diff)
	}
}

func TestStaleListResponseIsDiscarded(t *testing.T) {
	h := newHarness(t, "o/r")
	h.api.issues["open"] = []github.Issue{{Number: 1}}
	h.api.issues["closed"] = []github.Issue{{Number: 2}}
	gate := make(chan struct{})
	h.api.listGate = map[string]chan struct{}{"open": gate}
	h.api.listEntered = make(chan string, 1)

	done := make(chan struct{})
	go func() {
		h.handle(Refresh{})
		close(done)
	}()
	<-h.api.listEntered

	h.handle(SetFilter{Value: "closed"})
	close(gate)
	<-done

	renders := h.sink.renders()
	if len(renders) != 1 {
		t.Fatalf("stale render should be dropped, got %d renders", len(renders))
	}
	if renders[0].Filter != "closed" || renders[0].Issues[0].Number != 2 {
		t.Fatalf("unexpected surviving render: %+v", renders[0])
	}
	// the cache must follow the displayed list
	h.handle(LoadIssueForEdit{Number: 2})
	if h.api.count("get") != 0 {
		t.Fatalf("issue 2 should come from cache")
	}
}

func TestRefreshFromEarlierSessionIsDiscarded(t *testing.T) {
	h := newHarness(t, "o/r")
	h.api.issues["open"] = []github.Issue{{Number: 1, Title: "old session"}}
	h.api.single[1] = github.Issue{Number: 1, Title: "fetched"}
	gate := make(chan struct{})
	h.api.listGate = map[string]chan struct{}{"open": gate}
	h.api.listEntered = make(chan string, 1)

	done := make(chan struct{})
	go func() {
		h.handle(Refresh{})
		close(done)
	}()
	<-h.api.listEntered

	h.ctrl.Detach()
	h.ctrl.Attach(h.sink)
	close(gate)
	<-done

	if len(h.sink.renders()) != 0 {
		t.Fatalf("the new view must not see the old session's list: %+v", h.sink.renders())
	}
	h.handle(LoadIssueForEdit{Number: 1})
	if h.api.count("get") != 1 {
		t.Fatalf("new session cache should be empty, got %d fetches", h.api.count("get"))
	}
	if edit, ok := h.sink.last().(EditData); !ok || edit.Issue.Title != "fetched" {
		t.Fatalf("unexpected edit data: %#v", h.sink.last())
	}
}

func TestDetachedViewReceivesNothing(t *testing.T) {
	h := newHarness(t, "o/r")
	h.ctrl.Detach()
	h.handle(Ready{})
	h.handle(CreateIssue{Title: ""})
	if len(h.sink.all()) != 0 {
		t.Fatalf("detached view got messages: %v", h.sink.all())
	}
}

func TestPanicBecomesErrorNotice(t *testing.T) {
	h := newHarness(t, "o/r")
	h.api.panicList = true
	h.handle(Refresh{})
	n, ok := h.sink.last().(ErrorNotice)
	if !ok || !strings.Contains(n.Message, "list exploded") {
		t.Fatalf("expected error notice, got %#v", h.sink.last())
	}
}

func TestSetIssueStateMalformedIgnored(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(SetIssueState{Number: 0, State: "closed"})
	h.handle(SetIssueState{Number: 3, State: "merged"})
	if h.api.total() != 0 || len(h.sink.all()) != 0 {
		t.Fatalf("malformed intents should be ignored: calls=%v msgs=%v", h.api.calls, h.sink.all())
	}
	h.handle(SetIssueState{Number: 3, State: "closed"})
	if h.api.count("update") != 1 || h.api.count("list") != 1 {
		t.Fatalf("unexpected calls: %v", h.api.calls)
	}
}

func TestSetRepoValidatesAndPersists(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(SetRepo{Value: "not a repo"})
	if _, ok := h.sink.last().(ErrorNotice); !ok {
		t.Fatalf("expected validation notice, got %#v", h.sink.last())
	}
	h.handle(SetRepo{Value: "octo/pinned"})
	if h.store.Config().Repo != "octo/pinned" {
		t.Fatalf("repo not persisted: %+v", h.store.Config())
	}
	h.handle(SetRepo{Value: "__auto__"})
	if h.store.Config().Repo != "" {
		t.Fatalf("auto should clear override: %q", h.store.Config().Repo)
	}
}

func TestSetAuthModeAndToken(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(SetAuthMode{Mode: "bogus"})
	if len(h.sink.all()) != 0 {
		t.Fatalf("invalid mode should be ignored")
	}
	h.handle(SetAuthMode{Mode: "pat"})
	if h.store.Config().AuthMode != "pat" {
		t.Fatalf("auth mode not persisted")
	}
	if r := h.sink.renders(); len(r) != 1 || r[0].AuthMode != "pat" {
		t.Fatalf("render should report auth mode: %+v", r)
	}
	h.handle(SetToken{Token: "  ghp_x "})
	if tok, _ := h.pat.Get(); tok != "ghp_x" {
		t.Fatalf("token = %q", tok)
	}
}

func TestSummaryAndClipboard(t *testing.T) {
	h := newHarness(t, "o/r")
	h.api.issues["open"] = []github.Issue{{Number: 4, Title: "Crash", State: "open", HTMLURL: "https://github.com/o/r/issues/4"}}
	h.handle(Ready{})
	h.handle(SummaryIssue{Number: 4})

	doc, ok := h.sink.last().(Document)
	if !ok || doc.Title != "#4 Crash" || !strings.Contains(doc.Markdown, "# #4 Crash") {
		t.Fatalf("unexpected document: %#v", h.sink.last())
	}
	if h.api.count("get") != 0 {
		t.Fatalf("summary should use the cache")
	}

	h.handle(CopyIssue{URL: "https://github.com/o/r/issues/4"})
	if h.clip.text != "https://github.com/o/r/issues/4" {
		t.Fatalf("clipboard = %q", h.clip.text)
	}
}

func TestPullRequestAndAssign(t *testing.T) {
	h := newHarness(t, "o/r")
	h.handle(CreatePullRequest{Title: "t", Head: "feature"})
	n, ok := h.sink.last().(Notice)
	if !ok || !strings.Contains(n.Message, "#5") {
		t.Fatalf("unexpected message: %#v", h.sink.last())
	}
	h.handle(AssignIssue{Number: 3, Assignees: List{"ana"}})
	if h.api.count("assign") != 1 || h.api.count("list") != 1 {
		t.Fatalf("unexpected calls: %v", h.api.calls)
	}
}

func TestNilIntentIgnored(t *testing.T) {
	h := newHarness(t, "o/r")
	h.ctrl.Handle(context.Background(), nil)
	if len(h.sink.all()) != 0 {
		t.Fatalf("nil intent should be ignored")
	}
}

var _ upload.ContentAPI = (*fakeAPI)(nil)
