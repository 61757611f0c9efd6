// Package sourceforge scans SourceForge projects through their file
// release RSS feed.
package sourceforge

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/template"
)

const (
	DefaultURL = "https://sourceforge.net"
	name       = "sourceforge"
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
		Base:    core.Base{HandlerName: name, HandlerConfidence: 90, HandlerPriority: 90},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		env:     env,
	}
	h.urls = &URLs{baseURL: h.baseURL}
	return h
}

func (h *Handler) URLs() core.URLBuilder {
	return h.urls
}

var fileRe = regexp.MustCompile(`^mirror://sourceforge/([^/]+)/(?:.*/)?([^/]+)$`)

// CanHandle accepts mirror://sourceforge/ URLs that carry the package
// version, which is needed to build the file pattern.
func (h *Handler) CanHandle(pkg core.Package, url string) bool {
	return strings.HasPrefix(url, "mirror://sourceforge/") && pkg.Version != "" && strings.Contains(url, pkg.Version)
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	m := fileRe.FindStringSubmatch(url)
	if m == nil || !strings.Contains(m[2], pkg.Version) {
		return nil, nil
	}
	return h.scan(ctx, pkg, m[1], strings.ReplaceAll(m[2], pkg.Version, template.FullVersion), opts)
}

// ScanIdentity scans a project by name, matching files named like
// NAME-${PV}.tar.gz.
func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	return h.scan(ctx, pkg, remote, pkg.Name+"-"+template.FullVersion+".tar.gz", opts)
}

type feed struct {
	Items []item `xml:"channel>item"`
}

type item struct {
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

func (h *Handler) scan(ctx context.Context, pkg core.Package, project, fileTemplate string, opts core.Options) ([]core.Candidate, error) {
	re, err := regexp.Compile("(?i)^" + template.Pattern(fileTemplate))
	if err != nil {
		return nil, err
	}
	endpoint := h.urls.Releases(project)
	core.Logger(ctx).Info("using sourceforge feed", "project", project, "url", endpoint)

	var resp feed
	if err := h.env.Client.GetXML(ctx, endpoint, &resp); err != nil {
		return nil, core.WrapNotFound(name, project, err)
	}

	seen := make(map[string]bool)
	var releases []core.Release
	for _, it := range resp.Items {
		m := re.FindStringSubmatch(path.Base(strings.TrimSpace(it.Title)))
		if m == nil || len(m) < 2 || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		releases = append(releases, core.Release{
			Version: m[1],
			URLs:    []string{strings.TrimSuffix(strings.TrimSpace(it.Link), "/download")},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/projects/%s/rss?path=/&limit=200", u.baseURL, name)
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("mirror://sourceforge/%s/%s-%s.tar.gz", name, name, version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("%s/projects/%s/", u.baseURL, name)
}

func (u *URLs) PURL(name, version string) string {
	return ""
}
