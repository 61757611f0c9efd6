// Package maven scans Maven Central through each artifact's
// maven-metadata.xml.
package maven

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const (
	DefaultURL = "https://repo1.maven.org/maven2"
	name       = "maven"
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

// ParseCoordinates splits "group:artifact[:version]" or "group/artifact"
// into its parts. All parts are empty when s has no separator.
func ParseCoordinates(s string) (groupID, artifactID, version string) {
	if parts := strings.Split(s, ":"); len(parts) >= 2 {
		groupID, artifactID = parts[0], parts[1]
		if len(parts) > 2 {
			version = parts[2]
		}
		return groupID, artifactID, version
	}
	if i := strings.LastIndex(s, "/"); i > 0 {
		return s[:i], s[i+1:], ""
	}
	return "", "", ""
}

var artifactRe = regexp.MustCompile(`^https?://(?:repo1\.maven\.org|repo\.maven\.apache\.org)/maven2/(.+)/([^/]+)/[^/]+/[^/]+$`)

// coordinates turns a repository URL into "group:artifact".
func coordinates(url string) string {
	m := artifactRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], "/", ".") + ":" + m[2]
}

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return artifactRe.MatchString(url)
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, coordinates(url), opts)
}

type metadata struct {
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Versions   []string `xml:"versioning>versions>version"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	if g, a, _ := ParseCoordinates(remote); g == "" || a == "" {
		return nil, &core.NotFoundError{Handler: name, Name: remote}
	}
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using maven metadata", "artifact", remote, "url", url)

	var meta metadata
	if err := h.env.Client.GetXML(ctx, url, &meta); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	releases := make([]core.Release, 0, len(meta.Versions))
	for _, v := range meta.Versions {
		if strings.HasSuffix(v, "-SNAPSHOT") {
			continue
		}
		releases = append(releases, core.Release{
			Version: v,
			URLs:    []string{h.urls.Download(remote, v)},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) artifactPath(coords string) (string, string) {
	g, a, _ := ParseCoordinates(coords)
	return fmt.Sprintf("%s/%s/%s", u.baseURL, strings.ReplaceAll(g, ".", "/"), a), a
}

func (u *URLs) Releases(coords string) string {
	base, _ := u.artifactPath(coords)
	return base + "/maven-metadata.xml"
}

func (u *URLs) Download(coords, version string) string {
	if version == "" {
		return ""
	}
	base, a := u.artifactPath(coords)
	return fmt.Sprintf("%s/%s/%s-%s.jar", base, version, a, version)
}

func (u *URLs) Project(coords string) string {
	g, a, _ := ParseCoordinates(coords)
	return fmt.Sprintf("https://central.sonatype.com/artifact/%s/%s", g, a)
}

func (u *URLs) PURL(coords, version string) string {
	g, a, _ := ParseCoordinates(coords)
	if version != "" {
		return fmt.Sprintf("pkg:maven/%s/%s@%s", g, a, version)
	}
	return fmt.Sprintf("pkg:maven/%s/%s", g, a)
}
