package github

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v67/github"

	"gh-issues/internal/logging"
)

const defaultUserAgent = "gh-issues"

// Client adapts go-github to the calls the issue panel makes. Each call
// carries its own bearer token so the same client serves every auth mode.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
	api        *gh.Client
}

type Option func(*Client)

// WithBaseURL points the client at another API root, such as GitHub
// Enterprise or a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSpace(u) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.OrDiscard(l) }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  defaultUserAgent,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = loggingTransport{base: base, logger: c.logger}
	c.api = gh.NewClient(&hc)
	c.api.UserAgent = c.userAgent
	if c.baseURL != "" {
		// go-github resolves paths against BaseURL and needs the slash.
		u, err := url.Parse(strings.TrimRight(c.baseURL, "/") + "/")
		if err != nil {
			c.logger.Warn("ignoring invalid api base url", "url", c.baseURL, "err", err)
		} else {
			c.api.BaseURL = u
		}
	}
	return c
}

func (c *Client) rest(token string) *gh.Client {
	if token == "" {
		return c.api
	}
	return c.api.WithAuthToken(token)
}

type loggingTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Debug("github request failed", "method", req.Method, "path", req.URL.Path, "err", err)
		return nil, err
	}
	t.logger.Debug("github request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
	return resp, nil
}

func splitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q (want owner/name)", repo)
	}
	return owner, name, nil
}

// contentPath escapes every segment of a repository file path.
func contentPath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
