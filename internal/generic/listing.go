package generic

import (
	"bytes"
	"context"
	neturl "net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/template"
	"github.com/git-pkgs/upstream/internal/version"
)

// ScanListing walks the directory listings above url one placeholder
// segment at a time and reports the newer files it finds.
func (s *Scanner) ScanListing(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	logger := core.Logger(ctx)
	if !s.env.Config.ScanDir {
		return nil, nil
	}
	if rule, ok := s.env.Lists.ScanDirBlacklisted(url); ok {
		logger.Info("directory scan blacklisted", "url", url, "rule", rule)
		return nil, nil
	}

	t, ok := s.prepare(ctx, pkg, url)
	if !ok {
		return nil, nil
	}
	if rule, ok := s.env.Lists.ScanDirBlacklisted(t.resolved); ok {
		logger.Info("directory scan blacklisted", "url", t.resolved, "rule", rule)
		return nil, nil
	}

	steps := template.ScanPaths(t.tmpl)
	if len(steps) == 0 {
		return nil, nil
	}
	logger.Info("scanning directory", "url", template.Basedir(t.tmpl))

	w := &walker{s: s, pkg: pkg, target: t, opts: opts, seen: make(map[string]bool)}
	return w.walk(ctx, "", steps)
}

type walker struct {
	s      *Scanner
	pkg    core.Package
	target target
	opts   core.Options
	seen   map[string]bool
}

func (w *walker) walk(ctx context.Context, base string, steps []template.Step) ([]core.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := core.Logger(ctx)
	step := steps[0]
	last := len(steps) == 1
	dir := base + step.Base

	re, err := regexp.Compile("(?i)" + step.Pattern)
	if err != nil {
		logger.Debug("bad listing pattern", "pattern", step.Pattern, "err", err)
		return nil, nil
	}

	resp, err := w.s.env.Fetcher.Get(ctx, dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Debug("listing unavailable", "url", dir, "err", err)
		return nil, nil
	}
	if !resp.OK() {
		logger.Debug("listing unavailable", "url", dir, "status", resp.StatusCode)
		return nil, nil
	}

	var out []core.Candidate
	for _, href := range listingEntries(resp.ContentType, resp.Body) {
		path := strings.TrimPrefix(strings.TrimPrefix(href, dir+"/"), dir)
		m := re.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		pv := w.s.env.Mangler.Version(joinGroups(m[1:]), w.opts.VersionRules())
		if pv == "" {
			continue
		}

		next, ok := join(dir+"/", m[0])
		if !ok || w.seen[next] {
			continue
		}
		w.seen[next] = true

		if !last {
			if !w.mayContain(pv) {
				continue
			}
			sub, err := w.walk(ctx, strings.TrimSuffix(next, "/"), steps[1:])
			if err != nil {
				return out, err
			}
			out = append(out, sub...)
			continue
		}

		if w.s.env.Model.Filtered(w.pkg.CP(), w.pkg.Version, pv, nil) {
			continue
		}
		if strings.Contains(w.target.orig, path) || strings.Contains(w.target.resolved, path) {
			continue
		}
		logger.Debug("found", "handler", Name, "version", pv, "url", next)
		out = append(out, w.s.candidate(next, pv, Confidence, w.opts))
	}
	return out, nil
}

// mayContain reports whether an intermediate directory for version pv can
// hold releases newer than the package version. A directory is kept when
// it is not older than the package version cut to the same length.
func (w *walker) mayContain(pv string) bool {
	n := len(version.Split(pv))
	base := version.Split(w.pkg.Version)
	if len(base) > n {
		base = base[:n]
	}
	return w.s.env.Model.Compare(w.pkg.CP(), pv, base.String()) != version.Less
}

func joinGroups(groups []string) string {
	var b strings.Builder
	for _, g := range groups {
		b.WriteString(g)
	}
	return b.String()
}

func join(base, ref string) (string, bool) {
	b, err := neturl.Parse(base)
	if err != nil {
		return "", false
	}
	r, err := neturl.Parse(ref)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(r).String(), true
}

var anchorRe = regexp.MustCompile(`(?i)<\s*a\s+[^>]*href`)

// listingEntries returns the link targets of an HTML index, or the last
// field of each line of a plain FTP-style listing.
func listingEntries(contentType string, body []byte) []string {
	if strings.Contains(contentType, "html") || anchorRe.Match(body) {
		return links(body)
	}
	var out []string
	for _, line := range strings.Split(string(body), "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			out = append(out, fields[len(fields)-1])
		}
	}
	return out
}

// links extracts the href of every anchor in an HTML document.
func links(body []byte) []string {
	var out []string
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "href" {
					out = append(out, string(val))
				}
			}
		}
	}
}
