// Package github scans GitHub releases.
package github

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const (
	DefaultURL = "https://api.github.com"
	name       = "github"
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

var repoRe = regexp.MustCompile(`^https?://github\.com/([^/]+/[^/]+)/`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return repoRe.MatchString(url)
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	m := repoRe.FindStringSubmatch(url)
	if m == nil {
		return nil, nil
	}
	return h.ScanIdentity(ctx, pkg, m[1], opts)
}

type release struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
	TarballURL string `json:"tarball_url"`
}

// ScanIdentity scans owner/repo.
func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	owner, repo, ok := strings.Cut(strings.TrimSuffix(remote, ".git"), "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid github repository %q", remote)
	}
	url := h.urls.Releases(owner + "/" + repo)
	core.Logger(ctx).Info("using github api", "repository", owner+"/"+repo, "url", url)

	var resp []release
	if err := h.env.Client.GetJSON(ctx, url, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	releases := make([]core.Release, 0, len(resp))
	for _, r := range resp {
		if r.Draft || r.TagName == "" {
			continue
		}
		releases = append(releases, core.Release{
			Version: core.TrimTagPrefix(r.TagName, repo, pkg.Name),
			URLs:    []string{archiveURL(owner, repo, r.TagName)},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

func archiveURL(owner, repo, tag string) string {
	return fmt.Sprintf("https://github.com/%s/%s/archive/refs/tags/%s.tar.gz", owner, repo, tag)
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/repos/%s/releases?per_page=100", u.baseURL, name)
}

func (u *URLs) Download(name, version string) string {
	owner, repo, ok := strings.Cut(name, "/")
	if !ok || version == "" {
		return ""
	}
	return archiveURL(owner, repo, version)
}

func (u *URLs) Project(name string) string {
	return "https://github.com/" + name
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:github/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:github/%s", name)
}
