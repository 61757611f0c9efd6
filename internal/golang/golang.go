// Package golang scans the Go module proxy.
package golang

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
	DefaultURL = "https://proxy.golang.org"
	name       = "golang"
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

var moduleRe = regexp.MustCompile(`^(?:https://proxy\.golang\.org|mirror://goproxy)/(.+?)/@v/`)

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return moduleRe.MatchString(url)
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	m := moduleRe.FindStringSubmatch(url)
	if m == nil {
		return nil, nil
	}
	return h.ScanIdentity(ctx, pkg, decodeForProxy(m[1]), opts)
}

// ScanIdentity scans a module path such as github.com/BurntSushi/toml.
func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using go module proxy", "module", remote, "url", url)

	body, err := h.env.Client.GetText(ctx, url)
	if err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	var versions []string
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			versions = append(versions, line)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return h.env.Model.Simple(trim(versions[i]), trim(versions[j])) == version.Less
	})

	releases := make([]core.Release, 0, len(versions))
	for _, v := range versions {
		releases = append(releases, core.Release{
			Version: trim(v),
			URLs:    []string{h.urls.Download(remote, v)},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

// trim drops the +incompatible marker Go adds to v2+ tags of modules
// without a go.mod.
func trim(v string) string {
	return strings.TrimSuffix(v, "+incompatible")
}

// encodeForProxy encodes a module path according to the goproxy protocol.
// Capital letters are replaced with "!" followed by the lowercase letter.
// https://go.dev/ref/mod#goproxy-protocol
func encodeForProxy(path string) string {
	var b strings.Builder
	for _, r := range path {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune('!')
			b.WriteRune(r + 32) // lowercase
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decodeForProxy reverses encodeForProxy.
func decodeForProxy(path string) string {
	var b strings.Builder
	bang := false
	for _, r := range path {
		switch {
		case r == '!':
			bang = true
			continue
		case bang && r >= 'a' && r <= 'z':
			b.WriteRune(r - 32)
		default:
			b.WriteRune(r)
		}
		bang = false
	}
	return b.String()
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/%s/@v/list", u.baseURL, encodeForProxy(name))
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/@v/%s.zip", u.baseURL, encodeForProxy(name), version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("https://pkg.go.dev/%s", name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:golang/%s@%s", encodeForProxy(name), version)
	}
	return fmt.Sprintf("pkg:golang/%s", encodeForProxy(name))
}
