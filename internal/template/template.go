// Package template turns download URLs into version templates and back.
//
// A template is a URL in which substrings derived from the version have been
// replaced by placeholders: ${PV} for the whole version and ${0}, ${1}, ...
// for its numeric components.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/version"
)

// FullVersion is the placeholder for the complete version string.
const FullVersion = "${PV}"

// VersionPattern matches a version in a crawled listing: digits and dots,
// an optional letter run and any number of pre-release suffixes.
const VersionPattern = `((?:\d+)(?:(?:\.\d+)*)(?:[a-zA-Z]*?)(?:(?:(?:-|_)(?:pre|p|beta|b|alpha|a|rc|r)\d*)*))`

type replacement struct {
	literal     string
	placeholder string
}

// vars returns the version groupings to substitute, longest first: the whole
// version, then dotted prefixes of len-1 down to 2 components.
func vars(v string) []replacement {
	parts := version.Split(v)
	out := []replacement{{literal: v, placeholder: FullVersion}}
	for i := len(parts) - 1; i >= 2; i-- {
		lits := make([]string, i)
		phs := make([]string, i)
		for j := 0; j < i; j++ {
			lits[j] = parts[j].Text
			phs[j] = fmt.Sprintf("${%d}", j)
		}
		out = append(out, replacement{
			literal:     strings.Join(lits, "."),
			placeholder: strings.Join(phs, "."),
		})
	}
	return out
}

// splitScheme separates "scheme://" from the rest of the URL.
func splitScheme(u string) (prefix, rest string) {
	if i := strings.Index(u, "://"); i >= 0 {
		return u[:i+3], u[i+3:]
	}
	return "", u
}

// FromURL replaces occurrences of v inside each path segment of u with
// placeholders, most specific grouping first.
func FromURL(u, v string) string {
	if v == "" {
		return u
	}
	prefix, rest := splitScheme(u)
	chunks := strings.Split(rest, "/")
	repl := vars(v)
	for i, chunk := range chunks {
		for _, r := range repl {
			chunk = strings.ReplaceAll(chunk, r.literal, r.placeholder)
		}
		chunks[i] = chunk
	}
	return prefix + strings.Join(chunks, "/")
}

// ToURL expands a template for version v.
func ToURL(tmpl, v string) string {
	u := strings.ReplaceAll(tmpl, FullVersion, v)
	for i, c := range version.Split(v) {
		u = strings.ReplaceAll(u, fmt.Sprintf("${%d}", i), c.Text)
	}
	return u
}

// HasPlaceholder reports whether tmpl depends on the version at all.
func HasPlaceholder(tmpl string) bool {
	return strings.Contains(tmpl, "${")
}

var positionalRun = regexp.MustCompile(`\$\{\d+\}(?:\\\.\$\{\d+\})*`)

// Pattern returns the regular expression source matching tmpl with any
// version substituted. The result is anchored at the end, allowing a
// trailing slash.
func Pattern(tmpl string) string {
	p := regexp.QuoteMeta(tmpl)
	p = strings.ReplaceAll(p, `\$\{`, "${")
	p = strings.ReplaceAll(p, `\}`, "}")
	p = strings.ReplaceAll(p, FullVersion, VersionPattern)
	p = positionalRun.ReplaceAllLiteralString(p, `([\w\.]+?)`)
	return p + "/?$"
}

// Regexp compiles Pattern(tmpl) case-insensitively.
func Regexp(tmpl string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + Pattern(tmpl))
}

// Step is one directory level of a crawl: fetch Base, then keep the links
// matching Pattern.
type Step struct {
	Base    string
	Pattern string
}

// ScanPaths splits tmpl into crawl steps, one per path segment holding a
// placeholder. Base of the first step is the static prefix of the URL;
// later steps hold the static segments between two placeholder segments.
func ScanPaths(tmpl string) []Step {
	prefix, rest := splitScheme(tmpl)
	chunks := strings.Split(rest, "/")

	var steps []Step
	path := strings.TrimSuffix(prefix, "/")
	for _, chunk := range chunks {
		if HasPlaceholder(chunk) {
			steps = append(steps, Step{Base: path, Pattern: "^(?:|.*/)" + Pattern(chunk)})
			path = ""
			continue
		}
		path += "/" + chunk
	}
	return steps
}

// Basedir returns the part of tmpl before the first placeholder segment,
// with a trailing slash.
func Basedir(tmpl string) string {
	i := strings.Index(tmpl, "${")
	if i < 0 {
		return tmpl
	}
	j := strings.LastIndex(tmpl[:i], "/")
	if j < 0 {
		return ""
	}
	return tmpl[:j+1]
}

var endSepRe = regexp.MustCompile(`^(.*?)_(pre|p|beta|alpha|rc)(\d*)$`)

// ChangeEndSeparator turns a Gentoo style suffix separator into the dash
// most upstreams use ("1.0_beta1" to "1.0-beta1"). It returns "" when v has
// no such suffix.
func ChangeEndSeparator(v string) string {
	m := endSepRe.FindStringSubmatch(v)
	if m == nil {
		return ""
	}
	return m[1] + "-" + m[2] + m[3]
}
