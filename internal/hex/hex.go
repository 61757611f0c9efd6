// Package hex scans hex.pm, the Erlang and Elixir package index.
package hex

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const (
	DefaultURL = "https://hex.pm"
	name       = "hex"
)

func init() {
	core.Register(name, DefaultURL, func(baseURL string, env *core.Env) core.Handler {
		return New(baseURL, env)
	})
}

type Handler struct {
	core.Base
	baseURL string
	env     *core.Env
	urls    *URLs
}

func New(baseURL string, env *core.Env) *Handler {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	h := &Handler{
		Base:    core.Base{HandlerName: name, HandlerConfidence: 100, HandlerPriority: 90},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		env:     env,
	}
	h.urls = &URLs{baseURL: h.baseURL}
	return h
}

func (h *Handler) URLs() core.URLBuilder {
	return h.urls
}

var tarballRe = regexp.MustCompile(`^https://repo\.hex\.pm/tarballs/(.+?)-\d[^/]*\.tar$`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return strings.HasPrefix(url, "https://repo.hex.pm/tarballs/")
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(tarballRe, url, pkg), opts)
}

type packageResponse struct {
	Name        string                    `json:"name"`
	Releases    []releaseInfo             `json:"releases"`
	Retirements map[string]retirementInfo `json:"retirements"`
}

type releaseInfo struct {
	Version string `json:"version"`
}

type retirementInfo struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using hex api", "package", remote, "url", url)

	var resp packageResponse
	if err := h.env.Client.GetJSON(ctx, url, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	releases := make([]core.Release, 0, len(resp.Releases))
	for _, r := range resp.Releases {
		if _, retired := resp.Retirements[r.Version]; retired {
			continue
		}
		releases = append(releases, core.Release{
			Version: r.Version,
			URLs:    []string{h.urls.Download(remote, r.Version)},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/api/packages/%s", u.baseURL, name)
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("https://repo.hex.pm/tarballs/%s-%s.tar", name, version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("%s/packages/%s", u.baseURL, name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:hex/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:hex/%s", name)
}
