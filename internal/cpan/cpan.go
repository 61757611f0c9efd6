// Package cpan scans the Comprehensive Perl Archive Network through the
// MetaCPAN API.
package cpan

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/version"
)

const (
	DefaultURL = "https://fastapi.metacpan.org"
	name       = "cpan"
)

// Versions are mangled with these rules unless the package names its own.
var defaultRules = []string{"cpan", "gentoo"}

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

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return strings.HasPrefix(url, "mirror://cpan/")
}

var distRe = regexp.MustCompile(`^mirror://cpan/authors/.*/([^/]+?)-v?\d[^/]*$`)

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(distRe, url, pkg), opts)
}

type releaseSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source releaseInfo `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type releaseInfo struct {
	Version string `json:"version"`
	Author  string `json:"author"`
	Archive string `json:"archive"`
	Status  string `json:"status"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	endpoint := h.urls.Releases(remote)
	core.Logger(ctx).Info("using metacpan api", "distribution", remote, "url", endpoint)

	var resp releaseSearchResponse
	if err := h.env.Client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, core.WrapNotFound(name, remote, err)
	}

	rules := opts.VersionRules(defaultRules...)
	cpanCmp := version.CPANCompare(h.env.Model.Simple)
	base := MangleForCompare(pkg.Version)

	var out []core.Candidate
	for _, hit := range resp.Hits.Hits {
		r := hit.Source
		if r.Version == "" || r.Author == "" || r.Archive == "" {
			continue
		}
		pv := h.env.Mangler.Version(r.Version, rules)
		if strings.HasPrefix(r.Version, "v") {
			if h.env.Model.Filtered(pkg.CP(), pkg.Version, pv, nil) {
				continue
			}
		} else if h.env.Model.Filtered(pkg.CP(), base, MangleForCompare(r.Version), cpanCmp) {
			continue
		}

		out = append(out, core.Candidate{
			URL:        h.env.Mangler.URL(archiveURL(r.Author, r.Archive), opts.Rules.URL),
			Version:    pv,
			Handler:    h.Name(),
			Confidence: h.Confidence(),
		})
	}
	return out, nil
}

// MangleForCompare turns a dotted version back into a CPAN decimal by
// dropping every dot after the first: 1.2.3 becomes 1.23.
func MangleForCompare(v string) string {
	pos := strings.Index(v, ".")
	if pos <= 0 {
		return v
	}
	digits := strings.ReplaceAll(v, ".", "")
	return digits[:pos] + "." + digits[pos:]
}

func archiveURL(author, archive string) string {
	a := strings.ToUpper(author)
	if len(a) < 2 {
		return fmt.Sprintf("mirror://cpan/authors/id/%s/%s/%s", a, a, archive)
	}
	return fmt.Sprintf("mirror://cpan/authors/id/%s/%s/%s/%s", a[:1], a[:2], a, archive)
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/v1/release/_search?q=%s&size=1000", u.baseURL, url.QueryEscape("distribution:"+name))
}

func (u *URLs) Download(name, version string) string {
	return ""
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("https://metacpan.org/dist/%s", name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:cpan/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:cpan/%s", name)
}
