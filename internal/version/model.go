package version

import (
	"regexp"
	"strings"
)

// Model bundles the comparison and filtering rules applied to upstream
// versions. It is immutable once built and safe for concurrent use.
type Model struct {
	native            NativeComparator
	quirks            map[string]CompareFunc
	blacklist         []Atom
	ignorePre         bool
	ignorePreIfStable bool
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithNative replaces the native comparator. Passing nil disables it so only
// the component fallback is used.
func WithNative(n NativeComparator) ModelOption {
	return func(m *Model) {
		m.native = n
	}
}

// WithQuirk installs a comparator used for a single category/name.
func WithQuirk(cp string, fn CompareFunc) ModelOption {
	return func(m *Model) {
		m.quirks[cp] = fn
	}
}

// WithBlacklist sets the version blacklist.
func WithBlacklist(atoms []Atom) ModelOption {
	return func(m *Model) {
		m.blacklist = append([]Atom(nil), atoms...)
	}
}

// WithPreRelease sets the pre-release toggles. ignore drops every unstable
// candidate; ignoreIfStable drops them only when the base version is stable.
func WithPreRelease(ignore, ignoreIfStable bool) ModelOption {
	return func(m *Model) {
		m.ignorePre = ignore
		m.ignorePreIfStable = ignoreIfStable
	}
}

// DefaultNative is the native comparator a Model starts with: Gentoo's
// version grammar, then semantic versions.
var DefaultNative NativeComparator = ChainComparator{GentooComparator{}, VersComparator{}}

// NewModel returns a Model using DefaultNative and the built-in package
// quirks.
func NewModel(opts ...ModelOption) *Model {
	m := &Model{
		native: DefaultNative,
		quirks: make(map[string]CompareFunc),
	}
	m.quirks["sys-process/htop"] = htopCompare(m.Simple)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Simple compares two versions with the native comparator, falling back to
// FallbackCompare when the native one declines.
func (m *Model) Simple(a, b string) Order {
	if a == b {
		return Equal
	}
	if m.native != nil {
		if o, ok := m.native.Compare(a, b); ok {
			return o
		}
	}
	return FallbackCompare(a, b)
}

// Compare orders a and b for the package cp, honouring per-package quirks.
func (m *Model) Compare(cp, a, b string) Order {
	if fn, ok := m.quirks[cp]; ok {
		return fn(a, b)
	}
	return m.Simple(a, b)
}

// Filtered reports whether candidate should be dropped for a package at
// base. cmp overrides the comparator when non-nil.
func (m *Model) Filtered(cp, base, candidate string, cmp CompareFunc) bool {
	if cmp == nil {
		cmp = func(a, b string) Order { return m.Compare(cp, a, b) }
	}
	if cmp(base, candidate) != Less {
		return true
	}
	if m.Blacklisted(cp, candidate) {
		return true
	}
	if IsNightly(base, candidate) {
		return true
	}
	if !IsStable(candidate) {
		if m.ignorePre {
			return true
		}
		if m.ignorePreIfStable && IsStable(base) {
			return true
		}
	}
	return false
}

// Blacklisted reports whether cp-version matches a blacklist atom.
func (m *Model) Blacklisted(cp, version string) bool {
	for _, a := range m.blacklist {
		if a.Match(cp, version, m.Simple) {
			return true
		}
	}
	return false
}

func htopCompare(simple CompareFunc) CompareFunc {
	fix := func(v string) string {
		switch v {
		case "0.11", "0.12", "0.13":
			return "0.1." + v[3:]
		}
		return v
	}
	return func(a, b string) Order {
		return simple(fix(a), fix(b))
	}
}

var typeRe = regexp.MustCompile(`(?:[._-]|\d)([a-zA-Z]+)`)

var unstableTypes = map[string]bool{
	"alpha": true,
	"beta":  true,
	"pre":   true,
	"rc":    true,
}

// Type returns the release type of v: alpha, beta, pre, rc, p or release.
func Type(v string) string {
	for _, m := range typeRe.FindAllStringSubmatch(v, -1) {
		switch t := strings.ToLower(m[1]); t {
		case "alpha", "beta", "pre", "rc", "p":
			return t
		}
	}
	return "release"
}

// IsStable reports whether v is not an alpha, beta, pre or rc release.
func IsStable(v string) bool {
	return !unstableTypes[Type(v)]
}
