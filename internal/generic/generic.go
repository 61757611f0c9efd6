// Package generic finds newer releases of any package published as plain
// files on a web or FTP server, by crawling directory listings and, when
// that fails, by probing URLs synthesized from incremented versions.
package generic

import (
	"context"
	"strings"

	"github.com/git-pkgs/upstream/fetch"
	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/template"
)

const (
	Name = "generic"

	// Confidence of candidates read from a directory listing.
	Confidence = 45
	// BruteForceConfidence of candidates found by probing guessed URLs.
	BruteForceConfidence = 30

	priority = 45
)

func init() {
	core.Register(Name, "", func(_ string, env *core.Env) core.Handler {
		return New(env)
	})
}

// Scanner is the fallback handler for download URLs no index knows about.
type Scanner struct {
	core.Base
	env *core.Env
}

// New returns a Scanner bound to env.
func New(env *core.Env) *Scanner {
	return &Scanner{
		Base: core.Base{HandlerName: Name, HandlerConfidence: Confidence, HandlerPriority: priority},
		env:  env,
	}
}

var schemes = []string{"http://", "https://", "ftp://", "mirror://"}

// CanHandle accepts any http, https, ftp or mirror URL.
func (s *Scanner) CanHandle(_ core.Package, url string) bool {
	for _, scheme := range schemes {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}

// Scan crawls the listing for url and falls back to brute force when the
// listing yields nothing.
func (s *Scanner) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	found, err := s.ScanListing(ctx, pkg, url, opts)
	if err != nil || len(found) > 0 {
		return found, err
	}
	return s.BruteForce(ctx, pkg, url, opts)
}

// target is a source URL prepared for scanning.
type target struct {
	orig     string
	resolved string
	tmpl     string
	// version as it appears in the URL, which may differ from the
	// package version in its suffix separator.
	version string
}

// prepare resolves mirrors and turns url into a template. ok is false when
// the URL does not embed the package version.
func (s *Scanner) prepare(ctx context.Context, pkg core.Package, url string) (target, bool) {
	t := target{orig: url, resolved: url, version: pkg.Version}
	if fetch.IsMirror(url) {
		t.resolved = s.env.ResolveMirror(ctx, url)
		if t.resolved == "" {
			return t, false
		}
	}

	if alt := template.ChangeEndSeparator(pkg.Version); alt != "" &&
		!strings.Contains(t.resolved, pkg.Version) && strings.Contains(t.resolved, alt) {
		t.version = alt
	}
	t.tmpl = template.FromURL(t.resolved, t.version)
	if !template.HasPlaceholder(t.tmpl) {
		core.Logger(ctx).Debug("version not found in url", "url", url, "version", pkg.Version)
		return t, false
	}
	return t, true
}

// candidate builds a candidate tagged as this handler.
func (s *Scanner) candidate(url, version string, confidence int, opts core.Options) core.Candidate {
	return core.Candidate{
		URL:        s.env.Mangler.URL(url, opts.Rules.URL),
		Version:    version,
		Handler:    s.Name(),
		Confidence: confidence,
	}
}
