package version

import (
	"fmt"
	"regexp"
	"strings"
)

var cpvRe = regexp.MustCompile(`^(.+?)-(\d+(?:\.\d+)*[a-z]?(?:_(?:pre|p|beta|alpha|rc)\d*)*)(?:-r(\d+))?$`)

// SplitCPV splits "category/name-1.2-r1" (or "name-1.2") into the
// unversioned part, the version and the revision.
func SplitCPV(s string) (cp, version, revision string, ok bool) {
	m := cpvRe.FindStringSubmatch(s)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// Atom is a dependency style match expression such as ">=cat/pkg-1.2",
// "~cat/pkg-1.0" or "=cat/pkg-1.2*". An atom without an operator matches
// every version of the package.
type Atom struct {
	Op      string
	CP      string
	Version string
	Glob    bool
}

var atomOps = []string{">=", "<=", ">", "<", "=", "~"}

// ParseAtom parses a blacklist expression.
func ParseAtom(s string) (Atom, error) {
	s = strings.TrimSpace(s)
	var a Atom
	for _, op := range atomOps {
		if strings.HasPrefix(s, op) {
			a.Op = op
			s = s[len(op):]
			break
		}
	}
	if a.Op == "" {
		if !strings.Contains(s, "/") {
			return Atom{}, fmt.Errorf("atom %q: missing category", s)
		}
		a.CP = s
		return a, nil
	}
	if a.Op == "=" && strings.HasSuffix(s, "*") {
		a.Glob = true
		s = strings.TrimSuffix(s, "*")
	}
	cp, ver, _, ok := SplitCPV(s)
	if !ok || !strings.Contains(cp, "/") {
		return Atom{}, fmt.Errorf("atom %q: no version", s)
	}
	a.CP, a.Version = cp, ver
	return a, nil
}

// MustParseAtom is ParseAtom for static tables.
func MustParseAtom(s string) Atom {
	a, err := ParseAtom(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Atom) String() string {
	if a.Op == "" {
		return a.CP
	}
	s := a.Op + a.CP + "-" + a.Version
	if a.Glob {
		s += "*"
	}
	return s
}

// Match reports whether the package cp at version satisfies the atom.
func (a Atom) Match(cp, version string, cmp CompareFunc) bool {
	if cp != a.CP {
		return false
	}
	if a.Op == "" {
		return true
	}
	if a.Glob {
		return strings.HasPrefix(version, a.Version)
	}
	o := cmp(version, a.Version)
	switch a.Op {
	case ">=":
		return o != Less
	case "<=":
		return o != Greater
	case ">":
		return o == Greater
	case "<":
		return o == Less
	}
	// "=" and "~": revisions are never part of the version here.
	return o == Equal
}
