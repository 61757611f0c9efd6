// Package fetch is the HTTP politeness layer used by every handler: robots.txt
// compliance, per-URL timeouts, per-host serialization, circuit breaking,
// response caching and mirror:// resolution.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/dnscache"
)

var (
	ErrNotFound          = errors.New("not found upstream")
	ErrRateLimited       = errors.New("rate limited by upstream")
	ErrUpstreamDown      = errors.New("upstream unavailable")
	ErrDisallowed        = errors.New("disallowed by robots.txt")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultSlowTimeout = 15 * time.Second
	DefaultUserAgent   = "upstream"

	maxBodySize = 16 << 20
)

// Response is a fully read HTTP response.
type Response struct {
	// URL is the final URL after redirects.
	URL           string
	StatusCode    int
	ContentType   string
	ContentLength int64 // -1 if unknown
	Header        http.Header
	Body          []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err maps the status code onto the package sentinels.
func (r *Response) Err() error {
	switch {
	case r.OK():
		return nil
	case r.StatusCode == http.StatusNotFound || r.StatusCode == http.StatusGone:
		return ErrNotFound
	case r.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case r.StatusCode >= 500:
		return ErrUpstreamDown
	default:
		return fmt.Errorf("unexpected status %d", r.StatusCode)
	}
}

// Cache stores GET response bodies between runs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Doer is what handlers need from a Fetcher.
type Doer interface {
	Do(ctx context.Context, method, rawURL string, header http.Header) (*Response, error)
}

// Fetcher performs single polite requests. It never retries.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	slowTimeout time.Duration
	authFn      func(url string) (headerName, headerValue string)
	robots      *Robots
	breakers    *Breakers
	cache       Cache
	hosts       *hostLocks
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithTimeouts sets the per-request timeout and the one used for slow hosts.
func WithTimeouts(normal, slow time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = normal
		f.slowTimeout = slow
	}
}

// WithAuthFunc sets a function that returns auth headers for a given URL.
// Return empty strings to skip authentication for that URL.
func WithAuthFunc(fn func(url string) (headerName, headerValue string)) Option {
	return func(f *Fetcher) {
		f.authFn = fn
	}
}

// WithRobots enables robots.txt checks. A nil Robots disables them.
func WithRobots(r *Robots) Option {
	return func(f *Fetcher) {
		f.robots = r
	}
}

// WithBreakers replaces the per-host circuit breakers.
func WithBreakers(b *Breakers) Option {
	return func(f *Fetcher) {
		f.breakers = b
	}
}

// WithCache caches successful GET responses.
func WithCache(c Cache) Option {
	return func(f *Fetcher) {
		f.cache = c
	}
}

// NewHTTPClient returns a client whose dialer resolves through a DNS cache
// refreshed every five minutes.
func NewHTTPClient() *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP")
			},
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// NewFetcher creates a Fetcher. Robots checks are off until WithRobots.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		userAgent:   DefaultUserAgent,
		timeout:     DefaultTimeout,
		slowTimeout: DefaultSlowTimeout,
		breakers:    NewBreakers(),
		hosts:       newHostLocks(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = NewHTTPClient()
	}
	return f
}

// HTTPClient returns the underlying client so Robots can share its transport.
func (f *Fetcher) HTTPClient() *http.Client {
	return f.client
}

// UserAgent returns the configured User-Agent.
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// TimeoutFor returns the deadline applied to a request for rawURL.
func (f *Fetcher) TimeoutFor(rawURL string) time.Duration {
	if strings.Contains(rawURL, "sourceforge") {
		return f.slowTimeout
	}
	return f.timeout
}

// Get fetches rawURL. Any HTTP status yields a Response; only transport
// failures, robots denials and open breakers return an error.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	return f.Do(ctx, http.MethodGet, rawURL, nil)
}

// Head issues a HEAD request for rawURL.
func (f *Fetcher) Head(ctx context.Context, rawURL string) (*Response, error) {
	return f.Do(ctx, http.MethodHead, rawURL, nil)
}

// Do runs one request. Header values override the defaults.
func (f *Fetcher) Do(ctx context.Context, method, rawURL string, header http.Header) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, rawURL)
	}

	if f.robots != nil && !f.robots.Allowed(ctx, rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
	}

	cacheable := f.cache != nil && method == http.MethodGet
	if cacheable {
		if resp, ok := f.cached(ctx, rawURL); ok {
			return resp, nil
		}
	}

	release, err := f.hosts.acquire(ctx, u.Host)
	if err != nil {
		return nil, err
	}
	defer release()

	var resp *Response
	var reqErr error
	err = f.breakers.Do(u.Host, func() error {
		resp, reqErr = f.roundTrip(ctx, method, rawURL, header)
		if reqErr != nil && ctx.Err() == nil {
			return reqErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if reqErr != nil {
		return nil, reqErr
	}

	if cacheable && resp.StatusCode == http.StatusOK {
		f.store(ctx, rawURL, resp)
	}
	return resp, nil
}

func (f *Fetcher) roundTrip(ctx context.Context, method, rawURL string, header http.Header) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.TimeoutFor(rawURL))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")
	if f.authFn != nil {
		if name, value := f.authFn(rawURL); name != "" && value != "" {
			req.Header.Set(name, value)
		}
	}
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	out := &Response{
		URL:           resp.Request.URL.String(),
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: -1,
		Header:        resp.Header,
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			out.ContentLength = n
		}
	}

	if method != http.MethodHead {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		out.Body = body
		if out.ContentLength < 0 {
			out.ContentLength = int64(len(body))
		}
	}
	return out, nil
}

type cachedResponse struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func (f *Fetcher) cached(ctx context.Context, rawURL string) (*Response, bool) {
	data, ok, err := f.cache.Get(ctx, rawURL)
	if err != nil || !ok {
		return nil, false
	}
	var c cachedResponse
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
		return nil, false
	}
	return &Response{
		URL:           c.URL,
		StatusCode:    http.StatusOK,
		ContentType:   c.ContentType,
		ContentLength: int64(len(c.Body)),
		Header:        http.Header{"Content-Type": []string{c.ContentType}},
		Body:          c.Body,
	}, true
}

func (f *Fetcher) store(ctx context.Context, rawURL string, resp *Response) {
	data, err := json.Marshal(cachedResponse{URL: resp.URL, ContentType: resp.ContentType, Body: resp.Body})
	if err != nil {
		return
	}
	_ = f.cache.Set(ctx, rawURL, data)
}
