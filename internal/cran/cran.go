// Package cran scans the Comprehensive R Archive Network.
package cran

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/version"
)

const (
	DefaultURL = "https://cran.r-project.org"
	name       = "cran"
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

var tarballRe = regexp.MustCompile(`^mirror://cran/src/contrib/(?:Archive/[^/]+/)?([A-Za-z][A-Za-z0-9.]*)_[^/]+\.tar\.gz$`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return strings.HasPrefix(url, "mirror://cran/")
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(tarballRe, url, pkg), opts)
}

// ScanIdentity reads the current release from the package DESCRIPTION and
// older ones from the Archive directory. A missing archive is not an error:
// packages with a single release have none.
func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	descURL := h.urls.Releases(remote)
	core.Logger(ctx).Info("using cran", "package", remote, "url", descURL)

	body, err := h.env.Client.GetText(ctx, descURL)
	if err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}
	desc := parseDescription(body)

	var releases []core.Release
	if desc.Version != "" {
		releases = append(releases, core.Release{
			Version: rVersion(desc.Version),
			URLs:    []string{h.urls.Download(remote, desc.Version)},
		})
	}

	listing, err := h.env.Client.GetText(ctx, h.urls.Archive(remote))
	if err != nil {
		core.Logger(ctx).Debug("no cran archive", "package", remote, "err", err)
	}
	for _, v := range parseArchiveVersions(listing, remote) {
		if v == desc.Version {
			continue
		}
		releases = append(releases, core.Release{
			Version: rVersion(v),
			URLs:    []string{h.urls.ArchiveDownload(remote, v)},
		})
	}

	sort.SliceStable(releases, func(i, j int) bool {
		return h.env.Model.Simple(releases[i].Version, releases[j].Version) == version.Less
	})
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

// rVersion rewrites R's 1.2-3 form as 1.2.3.
func rVersion(v string) string {
	return strings.ReplaceAll(v, "-", ".")
}

// descriptionInfo holds the DESCRIPTION fields the scan needs.
type descriptionInfo struct {
	Package string
	Version string
}

func parseDescription(content string) descriptionInfo {
	info := descriptionInfo{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		// Continuation lines start with whitespace.
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(field) {
		case "Package":
			info.Package = strings.TrimSpace(value)
		case "Version":
			info.Version = strings.TrimSpace(value)
		}
	}
	return info
}

func parseArchiveVersions(html, pkgName string) []string {
	var versions []string
	seen := make(map[string]bool)
	// Match patterns like: pkgname_1.2.3.tar.gz
	pattern := regexp.MustCompile(`(?:^|[^A-Za-z0-9.])` + regexp.QuoteMeta(pkgName) + `_([0-9]+\.[0-9]+[0-9.-]*)\.tar\.gz`)
	for _, m := range pattern.FindAllStringSubmatch(html, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			versions = append(versions, m[1])
		}
	}
	return versions
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/web/packages/%s/DESCRIPTION", u.baseURL, name)
}

// Archive is the directory listing of superseded releases.
func (u *URLs) Archive(name string) string {
	return fmt.Sprintf("%s/src/contrib/Archive/%s/", u.baseURL, name)
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s/src/contrib/%s_%s.tar.gz", u.baseURL, name, version)
}

func (u *URLs) ArchiveDownload(name, version string) string {
	return fmt.Sprintf("%s%s_%s.tar.gz", u.Archive(name), name, version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("%s/package=%s", u.baseURL, name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:cran/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:cran/%s", name)
}
