// Package nuget scans the NuGet flat container for .NET packages.
package nuget

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const (
	DefaultURL = "https://api.nuget.org"
	name       = "nuget"
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

var packageRe = regexp.MustCompile(`^https://(?:api\.nuget\.org/v3-flatcontainer|www\.nuget\.org/api/v2/package)/([^/]+)/`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return packageRe.MatchString(url)
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(packageRe, url, pkg), opts)
}

type indexResponse struct {
	Versions []string `json:"versions"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using nuget api", "package", remote, "url", url)

	var resp indexResponse
	if err := h.env.Client.GetJSON(ctx, url, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	releases := make([]core.Release, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		// Build metadata never changes the release.
		if strings.Contains(v, "+") {
			continue
		}
		releases = append(releases, core.Release{
			Version: v,
			URLs:    []string{h.urls.Download(remote, v)},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

// URLs builds flat container URLs. Package ids are case-insensitive and the
// flat container only serves them lowercased.
type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/v3-flatcontainer/%s/index.json", u.baseURL, strings.ToLower(name))
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	id, v := strings.ToLower(name), strings.ToLower(version)
	return fmt.Sprintf("%s/v3-flatcontainer/%s/%s/%s.%s.nupkg", u.baseURL, id, v, id, v)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("https://www.nuget.org/packages/%s", name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:nuget/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:nuget/%s", name)
}
