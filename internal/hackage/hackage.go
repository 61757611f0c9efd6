// Package hackage scans the Haskell package index.
package hackage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/version"
)

const (
	DefaultURL = "https://hackage.haskell.org"
	name       = "hackage"
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

// Package names are letters, digits and hyphens; the version follows the
// last hyphen.
var packageRe = regexp.MustCompile(`^https?://hackage\.haskell\.org/package/([A-Za-z0-9-]+?)(?:-\d[\d.]*)?(?:/|$)`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return strings.HasPrefix(url, "https://hackage.haskell.org/package/") ||
		strings.HasPrefix(url, "http://hackage.haskell.org/package/")
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(packageRe, url, pkg), opts)
}

// preferredResponse lists the versions the maintainers have not
// deprecated.
type preferredResponse struct {
	Normal     []string `json:"normal-version"`
	Deprecated []string `json:"deprecated-version"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using hackage api", "package", remote, "url", url)

	var resp preferredResponse
	if err := h.env.Client.GetJSON(ctx, url, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	versions := append([]string(nil), resp.Normal...)
	sort.Slice(versions, func(i, j int) bool {
		return h.env.Model.Simple(versions[i], versions[j]) == version.Less
	})

	releases := make([]core.Release, 0, len(versions))
	for _, v := range versions {
		releases = append(releases, core.Release{
			Version: v,
			URLs:    []string{h.urls.Download(remote, v)},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/package/%s/preferred", u.baseURL, name)
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s/package/%s-%s/%s-%s.tar.gz", u.baseURL, name, version, name, version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("%s/package/%s", u.baseURL, name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:hackage/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:hackage/%s", name)
}
