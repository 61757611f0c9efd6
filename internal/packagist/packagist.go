// Package packagist scans packagist.org, the Composer package index, using
// its minified p2 metadata.
package packagist

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const (
	DefaultURL = "https://repo.packagist.org"
	name       = "packagist"
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

var packageRe = regexp.MustCompile(`^https://(?:repo\.)?packagist\.org/(?:packages|p2)/([^/]+/[^/.~]+)`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return packageRe.MatchString(url)
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(packageRe, url, pkg), opts)
}

type p2Response struct {
	Packages map[string][]versionInfo `json:"packages"`
}

type versionInfo struct {
	Version string    `json:"version"`
	Dist    *distInfo `json:"dist"`
}

type distInfo struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	if !strings.Contains(remote, "/") {
		return nil, &core.NotFoundError{Handler: name, Name: remote}
	}
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using packagist api", "package", remote, "url", url)

	var resp p2Response
	if err := h.env.Client.GetJSON(ctx, url, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	versions := resp.Packages[strings.ToLower(remote)]
	releases := make([]core.Release, 0, len(versions))
	// Minified metadata omits keys equal to the previous entry's.
	var dist *distInfo
	for _, v := range versions {
		if v.Dist != nil {
			dist = v.Dist
		}
		if dist == nil || dist.URL == "" {
			continue
		}
		releases = append(releases, core.Release{
			Version: v.Version,
			URLs:    []string{dist.URL},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/p2/%s.json", u.baseURL, strings.ToLower(name))
}

// Download is empty: dist archives live on the source forge and are only
// known from the metadata.
func (u *URLs) Download(name, version string) string {
	return ""
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("https://packagist.org/packages/%s", name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:composer/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:composer/%s", name)
}
