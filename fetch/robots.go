package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Robots caches robots.txt policies per scheme://host for the life of the
// process. Hosts whose robots.txt cannot be fetched are allowed.
type Robots struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	exempt    func(host string) bool

	mu       sync.RWMutex
	policies map[string]*robotstxt.RobotsData
}

// RobotsOption configures Robots.
type RobotsOption func(*Robots)

// WithRobotsClient sets the HTTP client used to fetch robots.txt.
func WithRobotsClient(c *http.Client) RobotsOption {
	return func(r *Robots) {
		r.client = c
	}
}

// WithRobotsTimeout bounds each robots.txt fetch.
func WithRobotsTimeout(d time.Duration) RobotsOption {
	return func(r *Robots) {
		r.timeout = d
	}
}

// WithExempt skips robots.txt for hosts the predicate accepts.
func WithExempt(fn func(host string) bool) RobotsOption {
	return func(r *Robots) {
		r.exempt = fn
	}
}

// NewRobots returns a robots.txt cache evaluating rules for userAgent.
func NewRobots(userAgent string, opts ...RobotsOption) *Robots {
	r := &Robots{
		userAgent: userAgent,
		timeout:   DefaultTimeout,
		policies:  make(map[string]*robotstxt.RobotsData),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = http.DefaultClient
	}
	return r
}

// Allowed reports whether rawURL may be fetched.
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	if u.Scheme == "ftp" {
		return true
	}
	if r.exempt != nil && r.exempt(u.Hostname()) {
		return true
	}

	policy := r.policy(ctx, u.Scheme+"://"+u.Host)
	if policy == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return policy.TestAgent(path, r.userAgent)
}

func (r *Robots) policy(ctx context.Context, root string) *robotstxt.RobotsData {
	r.mu.RLock()
	policy, ok := r.policies[root]
	r.mu.RUnlock()
	if ok {
		return policy
	}

	policy = r.load(ctx, root)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.policies[root]; ok {
		return existing
	}
	r.policies[root] = policy
	return policy
}

// load returns nil when robots.txt is unreachable.
func (r *Robots) load(ctx context.Context, root string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil
	}
	policy, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return policy
}
