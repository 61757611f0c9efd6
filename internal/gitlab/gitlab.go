// Package gitlab scans releases on GitLab instances.
package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const name = "gitlab"

func init() {
	core.Register(name, "", func(baseURL string, env *core.Env) core.Handler {
		return New(baseURL, env)
	})
}

// Handler scans every instance listed in the gitlab-instances setting.
// When baseURL is set, API calls go there whatever the instance.
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
		instances: env.Config.GitlabInstances,
	}
}

func (h *Handler) URLs() core.URLBuilder {
	return &URLs{baseURL: h.api(h.defaultInstance())}
}

func (h *Handler) defaultInstance() string {
	if len(h.instances) == 0 {
		return "gitlab.com"
	}
	return h.instances[0]
}

func (h *Handler) api(domain string) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	return "https://" + domain
}

var urlRe = regexp.MustCompile(`^https://([^/]+)/(.+)$`)

// stopSegments end the project path in a GitLab URL.
var stopSegments = []string{"-", "archive", "repository", "uploads", "raw", "releases", "tags"}

// parse splits a GitLab URL into instance domain and project path.
func (h *Handler) parse(u string) (domain, project string, ok bool) {
	m := urlRe.FindStringSubmatch(u)
	if m == nil || !slices.Contains(h.instances, m[1]) {
		return "", "", false
	}
	var parts []string
	for _, seg := range strings.Split(m[2], "/") {
		if slices.Contains(stopSegments, seg) || seg == "" {
			break
		}
		parts = append(parts, seg)
	}
	if len(parts) < 2 || parts[0] == "api" {
		return "", "", false
	}
	return m[1], strings.Join(parts, "/"), true
}

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	_, _, ok := h.parse(url)
	return ok
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	domain, project, ok := h.parse(url)
	if !ok {
		return nil, nil
	}
	return h.scan(ctx, pkg, domain, project, opts)
}

// ScanIdentity scans a project path on the first configured instance, or
// "domain/group/project" when remote names a configured instance.
func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	domain := h.defaultInstance()
	if first, rest, ok := strings.Cut(remote, "/"); ok && slices.Contains(h.instances, first) {
		domain, remote = first, rest
	}
	return h.scan(ctx, pkg, domain, remote, opts)
}

type release struct {
	TagName         string `json:"tag_name"`
	UpcomingRelease bool   `json:"upcoming_release"`
	Assets          struct {
		Sources []struct {
			Format string `json:"format"`
			URL    string `json:"url"`
		} `json:"sources"`
	} `json:"assets"`
}

var preferredFormats = []string{"tar.bz2", "tar.gz", "zip"}

func (h *Handler) scan(ctx context.Context, pkg core.Package, domain, project string, opts core.Options) ([]core.Candidate, error) {
	endpoint := (&URLs{baseURL: h.api(domain)}).Releases(project)
	core.Logger(ctx).Info("using gitlab api", "instance", domain, "project", project, "url", endpoint)

	var resp []release
	if err := h.env.Client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, core.WrapNotFound(name, project, err)
	}

	base := project[strings.LastIndex(project, "/")+1:]
	releases := make([]core.Release, 0, len(resp))
	for _, r := range resp {
		if r.UpcomingRelease || r.TagName == "" {
			continue
		}
		rel := core.Release{Version: core.TrimTagPrefix(r.TagName, base, pkg.Name)}
		for _, format := range preferredFormats {
			for _, s := range r.Assets.Sources {
				if s.Format == format {
					rel.URLs = append(rel.URLs, s.URL)
				}
			}
			if len(rel.URLs) > 0 {
				break
			}
		}
		releases = append(releases, rel)
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/api/v4/projects/%s/releases", u.baseURL, url.PathEscape(name))
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	base := name[strings.LastIndex(name, "/")+1:]
	return fmt.Sprintf("%s/%s/-/archive/%s/%s-%s.tar.bz2", u.baseURL, name, version, base, version)
}

func (u *URLs) Project(name string) string {
	return u.baseURL + "/" + name
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:gitlab/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:gitlab/%s", name)
}
