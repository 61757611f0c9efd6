// Package npm scans the npm registry.
package npm

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/version"
)

const (
	DefaultURL = "https://registry.npmjs.org"
	name       = "npm"
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

var tarballRe = regexp.MustCompile(`^https://registry\.npmjs\.org/((?:@[^/]+/)?[^/@]+)/-/`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return strings.HasPrefix(url, "https://registry.npmjs.org/")
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(tarballRe, url, pkg), opts)
}

type packageResponse struct {
	Name     string                 `json:"name"`
	Versions map[string]versionInfo `json:"versions"`
}

type versionInfo struct {
	Version    string   `json:"version"`
	Deprecated string   `json:"deprecated"`
	Dist       distInfo `json:"dist"`
}

type distInfo struct {
	Tarball string `json:"tarball"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	endpoint := h.urls.Releases(remote)
	core.Logger(ctx).Info("using npm registry", "package", remote, "url", endpoint)

	var resp packageResponse
	if err := h.env.Client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	releases := make([]core.Release, 0, len(resp.Versions))
	for num, v := range resp.Versions {
		if v.Deprecated != "" {
			continue
		}
		tarball := v.Dist.Tarball
		if tarball == "" {
			tarball = h.urls.Download(remote, num)
		}
		releases = append(releases, core.Release{Version: num, URLs: []string{tarball}})
	}
	sort.Slice(releases, func(i, j int) bool {
		return h.env.Model.Simple(releases[i].Version, releases[j].Version) == version.Less
	})
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

// unscoped returns the package name without its @scope/ prefix.
func unscoped(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/%s", u.baseURL, url.PathEscape(name))
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/-/%s-%s.tgz", u.baseURL, name, unscoped(name), version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("https://www.npmjs.com/package/%s", name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:npm/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:npm/%s", name)
}
