// Package client provides the JSON, XML and text helpers handlers use to talk
// to package indexes and forges through the fetch politeness layer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/git-pkgs/upstream/fetch"
)

// HTTPError represents a non-2xx HTTP response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Unwrap maps the status onto the fetch sentinels.
func (e *HTTPError) Unwrap() error {
	return (&fetch.Response{StatusCode: e.StatusCode}).Err()
}

// Client issues requests through a fetch.Doer.
type Client struct {
	doer   fetch.Doer
	header http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithDoer routes requests through d, normally a *fetch.Fetcher.
func WithDoer(d fetch.Doer) Option {
	return func(c *Client) {
		c.doer = d
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(name, value string) Option {
	return func(c *Client) {
		c.header.Set(name, value)
	}
}

// NewClient creates a Client. Without WithDoer it uses a fresh fetch.Fetcher
// with robots.txt checks off.
func NewClient(opts ...Option) *Client {
	c := &Client{header: make(http.Header)}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = fetch.NewFetcher()
	}
	return c
}

// DefaultClient returns a Client over a default fetcher.
func DefaultClient() *Client {
	return NewClient()
}

// WithUserAgent returns a copy of the client sending ua as User-Agent.
func (c *Client) WithUserAgent(ua string) *Client {
	clone := &Client{doer: c.doer, header: c.header.Clone()}
	clone.header.Set("User-Agent", ua)
	return clone
}

func (c *Client) do(ctx context.Context, method, url, accept string) (*fetch.Response, error) {
	header := c.header.Clone()
	if accept != "" && header.Get("Accept") == "" {
		header.Set("Accept", accept)
	}
	resp, err := c.doer.Do(ctx, method, url, header)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		body := resp.Body
		if len(body) > 1024 {
			body = body[:1024]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
	}
	return resp, nil
}

// GetBody fetches url and returns the response body.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, url, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetText fetches url and returns the body as a string.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	body, err := c.GetBody(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetJSON fetches url and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.NewDecoder(bytes.NewReader(resp.Body)).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// GetXML fetches url and decodes the XML body into v.
func (c *Client) GetXML(ctx context.Context, url string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, url, "application/xml")
	if err != nil {
		return err
	}
	if err := xml.NewDecoder(bytes.NewReader(resp.Body)).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// Head issues a HEAD request and returns the response on a 2xx status.
func (c *Client) Head(ctx context.Context, url string) (*fetch.Response, error) {
	return c.do(ctx, http.MethodHead, url, "")
}

// Probe issues a HEAD request and returns the response whatever its status.
func (c *Client) Probe(ctx context.Context, url string) (*fetch.Response, error) {
	return c.doer.Do(ctx, http.MethodHead, url, c.header.Clone())
}
