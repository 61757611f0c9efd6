// Package cargo scans crates.io.
package cargo

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const (
	DefaultURL = "https://crates.io"
	name       = "cargo"
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

var crateRe = regexp.MustCompile(`^https://(?:crates\.io/api/v1/crates|static\.crates\.io/crates)/([^/]+)/`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return crateRe.MatchString(url)
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(crateRe, url, pkg), opts)
}

type crateResponse struct {
	Crate    crateInfo     `json:"crate"`
	Versions []versionInfo `json:"versions"`
}

type crateInfo struct {
	ID string `json:"id"`
}

type versionInfo struct {
	Num    string `json:"num"`
	Yanked bool   `json:"yanked"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using crates.io api", "crate", remote, "url", url)

	var resp crateResponse
	if err := h.env.Client.GetJSON(ctx, url, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	releases := make([]core.Release, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		if v.Yanked {
			continue
		}
		releases = append(releases, core.Release{
			Version: v.Num,
			URLs:    []string{h.urls.Download(remote, v.Num)},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/api/v1/crates/%s", u.baseURL, name)
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("https://crates.io/api/v1/crates/%s/%s/download", name, version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("%s/crates/%s", u.baseURL, name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:cargo/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:cargo/%s", name)
}
