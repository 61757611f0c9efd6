// Package rubygems scans rubygems.org.
package rubygems

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const (
	DefaultURL = "https://rubygems.org"
	name       = "rubygems"
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

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return strings.HasPrefix(url, "https://rubygems.org/")
}

var gemRe = regexp.MustCompile(`^https://rubygems\.org/(?:gems|downloads)/(.+?)-\d[^/]*\.gem$`)

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(gemRe, url, pkg), opts)
}

type versionResponse struct {
	Number     string `json:"number"`
	Platform   string `json:"platform"`
	Prerelease bool   `json:"prerelease"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using rubygems api", "gem", remote, "url", url)

	var resp []versionResponse
	if err := h.env.Client.GetJSON(ctx, url, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	releases := make([]core.Release, 0, len(resp))
	for _, v := range resp {
		// Native builds repeat the version once per platform.
		if v.Platform != "" && v.Platform != "ruby" {
			continue
		}
		releases = append(releases, core.Release{
			Version: v.Number,
			URLs:    []string{h.urls.Download(remote, v.Number)},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/api/v1/versions/%s.json", u.baseURL, name)
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s/gems/%s-%s.gem", u.baseURL, name, version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("%s/gems/%s", u.baseURL, name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:gem/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:gem/%s", name)
}
