// Package gitea scans releases on Gitea and Forgejo instances.
package gitea

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const name = "gitea"

func init() {
	core.Register(name, "", func(baseURL string, env *core.Env) core.Handler {
		return New(baseURL, env)
	})
}

// Handler scans every instance listed in the gitea-instances setting.
type Handler struct {
	core.Base
	baseURL   string
	env       *core.Env
	instances []string
}

func New(baseURL string, env *core.Env) *Handler {
	return &Handler{
		Base:      core.Base{HandlerName: name, HandlerConfidence: 100, HandlerPriority: 90},
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		env:       env,
		instances: env.Config.GiteaInstances,
	}
}

func (h *Handler) URLs() core.URLBuilder {
	return &URLs{baseURL: h.api(h.defaultInstance())}
}

func (h *Handler) defaultInstance() string {
	if len(h.instances) == 0 {
		return "codeberg.org"
	}
	return h.instances[0]
}

func (h *Handler) api(domain string) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	return "https://" + domain
}

var repoRe = regexp.MustCompile(`^https://([^/]+)/([^/]+/[^/]+)(?:/|$)`)

func (h *Handler) parse(u string) (domain, repo string, ok bool) {
	m := repoRe.FindStringSubmatch(u)
	if m == nil || !slices.Contains(h.instances, m[1]) || strings.HasPrefix(m[2], "api/") {
		return "", "", false
	}
	return m[1], m[2], true
}

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	_, _, ok := h.parse(url)
	return ok
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	domain, repo, ok := h.parse(url)
	if !ok {
		return nil, nil
	}
	return h.scan(ctx, pkg, domain, repo, opts)
}

// ScanIdentity scans owner/repo on the first configured instance, or
// "domain/owner/repo" when remote names a configured instance.
func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	domain := h.defaultInstance()
	if first, rest, ok := strings.Cut(remote, "/"); ok && slices.Contains(h.instances, first) {
		domain, remote = first, rest
	}
	if strings.Count(remote, "/") != 1 {
		return nil, fmt.Errorf("invalid gitea repository %q", remote)
	}
	return h.scan(ctx, pkg, domain, remote, opts)
}

type release struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	TarballURL string `json:"tarball_url"`
}

func (h *Handler) scan(ctx context.Context, pkg core.Package, domain, repo string, opts core.Options) ([]core.Candidate, error) {
	endpoint := (&URLs{baseURL: h.api(domain)}).Releases(repo)
	core.Logger(ctx).Info("using gitea api", "instance", domain, "repository", repo, "url", endpoint)

	var resp []release
	if err := h.env.Client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, core.WrapNotFound(name, repo, err)
	}

	base := repo[strings.Index(repo, "/")+1:]
	releases := make([]core.Release, 0, len(resp))
	for _, r := range resp {
		if r.Draft || r.TagName == "" {
			continue
		}
		rel := core.Release{Version: core.TrimTagPrefix(r.TagName, base, pkg.Name)}
		if r.TarballURL != "" {
			rel.URLs = []string{r.TarballURL}
		}
		releases = append(releases, rel)
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/api/v1/repos/%s/releases", u.baseURL, name)
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/archive/%s.tar.gz", u.baseURL, name, version)
}

func (u *URLs) Project(name string) string {
	return u.baseURL + "/" + name
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:gitea/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:gitea/%s", name)
}
