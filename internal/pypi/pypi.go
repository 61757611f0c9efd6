// Package pypi scans the Python Package Index.
package pypi

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
	DefaultURL = "https://pypi.org"
	name       = "pypi"
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

var sourceRe = regexp.MustCompile(`^(?:mirror://pypi|https?://files\.pythonhosted\.org/packages/source)/\w/([^/]+)/`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return strings.HasPrefix(url, "mirror://pypi/") ||
		strings.Contains(url, "files.pythonhosted.org/packages/source/")
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(sourceRe, url, pkg), opts)
}

type packageResponse struct {
	Info     infoBlock                `json:"info"`
	Releases map[string][]releaseFile `json:"releases"`
}

type infoBlock struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type releaseFile struct {
	URL         string `json:"url"`
	PackageType string `json:"packagetype"`
	Yanked      bool   `json:"yanked"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using pypi json api", "package", remote, "url", url)

	var resp packageResponse
	if err := h.env.Client.GetJSON(ctx, url, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	releases := make([]core.Release, 0, len(resp.Releases))
	for num, files := range resp.Releases {
		r := core.Release{Version: num}
		for _, f := range sortFiles(files) {
			if f.Yanked || f.URL == "" {
				continue
			}
			r.URLs = append(r.URLs, f.URL)
		}
		releases = append(releases, r)
	}
	sort.Slice(releases, func(i, j int) bool {
		return h.env.Model.Simple(releases[i].Version, releases[j].Version) == version.Less
	})

	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

// sortFiles puts source distributions ahead of wheels.
func sortFiles(files []releaseFile) []releaseFile {
	out := append([]releaseFile(nil), files...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PackageType == "sdist" && out[j].PackageType != "sdist"
	})
	return out
}

func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, ".", "-")
	return name
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/pypi/%s/json", u.baseURL, name)
}

func (u *URLs) Download(name, version string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf("https://files.pythonhosted.org/packages/source/%s/%s/%s-%s.tar.gz", name[:1], name, name, version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("%s/project/%s/", u.baseURL, name)
}

func (u *URLs) PURL(name, version string) string {
	normalized := normalizeName(name)
	if version != "" {
		return fmt.Sprintf("pkg:pypi/%s@%s", normalized, version)
	}
	return fmt.Sprintf("pkg:pypi/%s", normalized)
}
