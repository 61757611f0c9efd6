package version

import (
	"regexp"
	"strings"
)

// RuleFunc is a pure string transform applied by a named mangling rule.
type RuleFunc func(string) string

// Rules names the mangling rules applied to upstream versions and to
// discovered URLs, in order.
type Rules struct {
	Version []string
	URL     []string
}

// DefaultVersionRules apply when a package does not name its own.
var DefaultVersionRules = []string{"gentoo"}

// Mangler holds the named version and URL rules. Rules are registered while
// the engine is being assembled; lookups afterwards are read-only.
type Mangler struct {
	version map[string]RuleFunc
	url     map[string]RuleFunc
}

// NewMangler returns a Mangler with the built-in gentoo, cpan and v rules.
func NewMangler() *Mangler {
	m := &Mangler{
		version: make(map[string]RuleFunc),
		url:     make(map[string]RuleFunc),
	}
	m.RegisterVersionRule("gentoo", GentooMangle)
	m.RegisterVersionRule("cpan", CPANMangle)
	m.RegisterVersionRule("v", stripV)
	return m
}

// RegisterVersionRule adds or replaces a named version rule.
func (m *Mangler) RegisterVersionRule(name string, fn RuleFunc) {
	m.version[name] = fn
}

// RegisterURLRule adds or replaces a named URL rule.
func (m *Mangler) RegisterURLRule(name string, fn RuleFunc) {
	m.url[name] = fn
}

// Version applies rules to an upstream version. nil rules means
// DefaultVersionRules.
func (m *Mangler) Version(v string, rules []string) string {
	if rules == nil {
		rules = DefaultVersionRules
	}
	for _, r := range rules {
		v = apply(m.version, r, v)
	}
	return v
}

// URL applies rules to a discovered download URL.
func (m *Mangler) URL(u string, rules []string) string {
	for _, r := range rules {
		u = apply(m.url, r, u)
	}
	return u
}

func apply(table map[string]RuleFunc, rule, s string) string {
	if re, repl, ok := parseSubstitution(rule); ok {
		return re.ReplaceAllString(s, repl)
	}
	if fn, ok := table[rule]; ok {
		return fn(s)
	}
	return s
}

var (
	substSlash = regexp.MustCompile(`^s/(.*[^\\])/(.*)/$`)
	substPipe  = regexp.MustCompile(`^s\|(.*[^\\])\|(.*)\|$`)
	backrefRe  = regexp.MustCompile(`\$(\d+)`)
)

// parseSubstitution understands perl style s/pattern/repl/ and
// s|pattern|repl| rules. $1 style references become ${1}.
func parseSubstitution(rule string) (*regexp.Regexp, string, bool) {
	m := substSlash.FindStringSubmatch(rule)
	if m == nil {
		m = substPipe.FindStringSubmatch(rule)
	}
	if m == nil {
		return nil, "", false
	}
	re, err := regexp.Compile(m[1])
	if err != nil {
		return nil, "", false
	}
	return re, backrefRe.ReplaceAllString(m[2], "$${$1}"), true
}

func stripV(v string) string {
	if len(v) > 1 && (v[0] == 'v' || v[0] == 'V') && isDigit(v[1]) {
		return v[1:]
	}
	return v
}

var (
	dateRe   = regexp.MustCompile(`^(\d{4})[.-](\d{2})[.-](\d{2})$`)
	suffixRe = regexp.MustCompile(`(?i)^(.*?\d)([._-]?)(alpha|beta|preview|pre|rc|dev|patch|post|pl|a|b|c|p)[._-]?(\d*)$`)
)

var gentooSuffixes = map[string]string{
	"alpha":   "_alpha",
	"a":       "_alpha",
	"beta":    "_beta",
	"b":       "_beta",
	"pre":     "_pre",
	"preview": "_pre",
	"dev":     "_pre",
	"rc":      "_rc",
	"c":       "_rc",
	"p":       "_p",
	"pl":      "_p",
	"patch":   "_p",
	"post":    "_p",
}

// GentooMangle rewrites common upstream spellings into Gentoo's version
// grammar: a leading "v" is dropped, ISO dates lose their separators and
// pre-release suffixes become _alpha, _beta, _pre, _rc or _p. A bare
// trailing letter ("1.0a") is a valid Gentoo version and is kept.
func GentooMangle(v string) string {
	v = stripV(v)
	if m := dateRe.FindStringSubmatch(v); m != nil {
		return m[1] + m[2] + m[3]
	}
	m := suffixRe.FindStringSubmatch(v)
	if m == nil {
		return v
	}
	sep, word, num := m[2], strings.ToLower(m[3]), m[4]
	if len(word) == 1 && sep == "" && num == "" {
		return v
	}
	return m[1] + gentooSuffixes[word] + num
}

// CPANMangle converts a CPAN decimal version into Gentoo's dotted form:
// 0.30 becomes 0.300.0 and 1.2_3 becomes 1.200.0_rc3.
func CPANMangle(v string) string {
	if strings.HasPrefix(v, "v") {
		return v[1:]
	}
	v = strings.ReplaceAll(v, "._", "_")
	v = strings.ReplaceAll(v, "_0.", "_")

	rc := ""
	if strings.Count(v, "_") == 1 {
		v, rc, _ = strings.Cut(v, "_")
		rc = strings.TrimPrefix(rc, "rc")
	}

	parts := strings.Split(v, ".")
	if len(parts) == 2 {
		parts = append(parts[:1], chunk(parts[1], 3)...)
	}
	if len(parts) == 2 {
		parts = append(parts, "0")
	}
	for i := 1; i < len(parts); i++ {
		if i == len(parts)-1 && parts[i] == "0" {
			continue
		}
		if len(parts[i]) < 3 {
			parts[i] += strings.Repeat("0", 3-len(parts[i]))
		}
	}
	for i, p := range parts {
		if p == "0" {
			continue
		}
		if p = strings.TrimLeft(p, "0"); p == "" {
			p = "0"
		}
		parts[i] = p
	}

	out := strings.Join(parts, ".")
	if rc != "" {
		out += "_rc" + rc
	}
	return out
}

func chunk(s string, n int) []string {
	if s == "" {
		return []string{""}
	}
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}
