// Package pub scans pub.dev, the Dart and Flutter package index.
package pub

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const (
	DefaultURL = "https://pub.dev"
	name       = "pub"
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

var packageRe = regexp.MustCompile(`^https://(?:pub\.dev|pub\.dartlang\.org)/(?:api/)?packages/([^/]+)`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return strings.HasPrefix(url, "https://pub.dev/packages/") ||
		strings.HasPrefix(url, "https://pub.dev/api/packages/") ||
		strings.HasPrefix(url, "https://pub.dartlang.org/")
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(packageRe, url, pkg), opts)
}

type packageResponse struct {
	Name     string        `json:"name"`
	Versions []versionInfo `json:"versions"`
}

type versionInfo struct {
	Version    string `json:"version"`
	ArchiveURL string `json:"archive_url"`
	Retracted  bool   `json:"retracted"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using pub api", "package", remote, "url", url)

	var resp packageResponse
	if err := h.env.Client.GetJSON(ctx, url, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	releases := make([]core.Release, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		if v.Retracted {
			continue
		}
		archive := v.ArchiveURL
		if archive == "" {
			archive = h.urls.Download(remote, v.Version)
		}
		releases = append(releases, core.Release{Version: v.Version, URLs: []string{archive}})
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
	return fmt.Sprintf("%s/packages/%s/versions/%s.tar.gz", u.baseURL, name, version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("%s/packages/%s", u.baseURL, name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:pub/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:pub/%s", name)
}
