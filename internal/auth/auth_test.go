package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

type memStore struct {
	token string
	sets  int
}

func (m *memStore) Get() (string, error) { return m.token, nil }
func (m *memStore) Set(t string) error {
	m.sets++
	m.token = t
	return nil
}

type fakeBroker struct {
	token string
	err   error
}

func (f fakeBroker) Session(context.Context) (string, error) { return f.token, f.err }

func pat() Mode     { return ModePAT }
func session() Mode { return ModeSession }

func TestPATStoredToken(t *testing.T) {
	p := Provider{Mode: pat, Tokens: &memStore{token: "ghp_1"}}
	tok, err := p.Token(context.Background())
	if err != nil || tok != "ghp_1" {
		t.Fatalf("token = %q err = %v", tok, err)
	}
}

func TestPATMissingWithoutRemediation(t *testing.T) {
	p := Provider{Mode: pat, Tokens: &memStore{}}
	_, err := p.Token(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	var noAuth *NoAuthError
	if !errors.As(err, &noAuth) || noAuth.Reason != ReasonNotConfigured {
		t.Fatalf("expected NoAuthError, got %#v", err)
	}
}

func TestPATRemediationRetriesOnce(t *testing.T) {
	store := &memStore{}
	calls := 0
	p := Provider{
		Mode:   pat,
		Tokens: store,
		Remediate: func(context.Context) (string, error) {
			calls++
			return "  ghp_new  ", nil
		},
	}
	tok, err := p.Token(context.Background())
	if err != nil || tok != "ghp_new" {
		t.Fatalf("token = %q err = %v", tok, err)
	}
	if calls != 1 || store.sets != 1 {
		t.Fatalf("remediate calls = %d, sets = %d", calls, store.sets)
	}
}

func TestPATRemediationEmptyFailsTerminally(t *testing.T) {
	calls := 0
	p := Provider{
		Mode:   pat,
		Tokens: &memStore{},
		Remediate: func(context.Context) (string, error) {
			calls++
			return "", nil
		},
	}
	_, err := p.Token(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("remediation should run exactly once, ran %d", calls)
	}
}

func TestSessionModeDoesNotFallBack(t *testing.T) {
	p := Provider{
		Mode:    session,
		Tokens:  &memStore{token: "ghp_should_not_be_used"},
		Session: fakeBroker{err: errors.New("not logged in")},
	}
	_, err := p.Token(context.Background())
	if !errors.Is(err, ErrNotGranted) {
		t.Fatalf("expected not granted, got %v", err)
	}
	if errors.Is(err, ErrNotConfigured) {
		t.Fatalf("reasons must be distinct")
	}
}

func TestSessionModeToken(t *testing.T) {
	p := Provider{Mode: session, Session: fakeBroker{token: "gho_abc"}}
	tok, err := p.Token(context.Background())
	if err != nil || tok != "gho_abc" {
		t.Fatalf("token = %q err = %v", tok, err)
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode("Token"); !ok || m != ModePAT {
		t.Fatalf("token alias: %q %v", m, ok)
	}
	if m, ok := ParseMode("session"); !ok || m != ModeSession {
		t.Fatalf("session: %q %v", m, ok)
	}
	if _, ok := ParseMode("oauth"); ok {
		t.Fatalf("oauth should be rejected")
	}
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	s := FileTokenStore{Path: path}
	if tok, err := s.Get(); err != nil || tok != "" {
		t.Fatalf("missing file should read empty: %q %v", tok, err)
	}
	if err := s.Set("ghp_x"); err != nil {
		t.Fatalf("set: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("token file mode = %v", info.Mode().Perm())
	}
	if tok, _ := s.Get(); tok != "ghp_x" {
		t.Fatalf("get = %q", tok)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if tok, _ := s.Get(); tok != "" {
		t.Fatalf("cleared token still present: %q", tok)
	}
}

type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

func TestGHSessionPrefersEnvironment(t *testing.T) {
	g := GHSession{
		Runner: runnerFunc(func(context.Context, string, ...string) ([]byte, error) {
			t.Fatalf("gh should not run when GH_TOKEN is set")
			return nil, nil
		}),
		Getenv: func(k string) string {
			if k == "GH_TOKEN" {
				return "env_tok"
			}
			return ""
		},
	}
	tok, err := g.Session(context.Background())
	if err != nil || tok != "env_tok" {
		t.Fatalf("token = %q err = %v", tok, err)
	}
}

func TestGHSessionRunsCLI(t *testing.T) {
	g := GHSession{
		Runner: runnerFunc(func(_ context.Context, name string, args ...string) ([]byte, error) {
			if name != "gh" || len(args) != 2 || args[0] != "auth" || args[1] != "token" {
				t.Fatalf("unexpected command %s %v", name, args)
			}
			return []byte("gho_cli\n"), nil
		}),
		Getenv: func(string) string { return "" },
	}
	tok, err := g.Session(context.Background())
	if err != nil || tok != "gho_cli" {
		t.Fatalf("token = %q err = %v", tok, err)
	}
}

func TestKeyringTokenStore(t *testing.T) {
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), "token")
	s := KeyringTokenStore{Service: "gh-issues", User: "pat", Fallback: FileTokenStore{Path: path}}

	// A plaintext token from an older run is still readable.
	if err := s.Fallback.Set("ghp_old"); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if tok, err := s.Get(); err != nil || tok != "ghp_old" {
		t.Fatalf("fallback get = %q %v", tok, err)
	}

	if err := s.Set(" ghp_new "); err != nil {
		t.Fatalf("set: %v", err)
	}
	if tok, err := keyring.Get("gh-issues", "pat"); err != nil || tok != "ghp_new" {
		t.Fatalf("keyring = %q %v", tok, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("plaintext copy should be removed, stat err = %v", err)
	}
	if tok, _ := s.Get(); tok != "ghp_new" {
		t.Fatalf("get = %q", tok)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := keyring.Get("gh-issues", "pat"); !errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("keyring entry should be gone: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestKeyringTokenStoreFallsBackToFile(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Cleanup(keyring.MockInit)
	path := filepath.Join(t.TempDir(), "token")
	s := KeyringTokenStore{Service: "gh-issues", User: "pat", Fallback: FileTokenStore{Path: path}}

	if err := s.Set("ghp_x"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if b, err := os.ReadFile(path); err != nil || strings.TrimSpace(string(b)) != "ghp_x" {
		t.Fatalf("fallback file = %q %v", b, err)
	}
	if tok, err := s.Get(); err != nil || tok != "ghp_x" {
		t.Fatalf("get = %q %v", tok, err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	bare := KeyringTokenStore{Service: "gh-issues", User: "pat"}
	if err := bare.Set("ghp_x"); err == nil {
		t.Fatalf("expected error without a fallback file")
	}
}
