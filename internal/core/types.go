// Package core provides the shared types, the handler registry and the
// dispatch loop.
package core

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/upstream/internal/version"
)

// Package identifies an installed package by category/name at a version.
type Package struct {
	Category string
	Name     string
	Version  string
	Revision string
}

// ParsePackage splits "category/name-version[-rN]".
func ParsePackage(s string) (Package, error) {
	cp, v, rev, ok := version.SplitCPV(s)
	if !ok {
		return Package{}, fmt.Errorf("invalid package %q: no version", s)
	}
	cat, name, ok := strings.Cut(cp, "/")
	if !ok || cat == "" || name == "" || strings.Contains(name, "/") {
		return Package{}, fmt.Errorf("invalid package %q: want category/name-version", s)
	}
	return Package{Category: cat, Name: name, Version: v, Revision: rev}, nil
}

// CP returns "category/name".
func (p Package) CP() string {
	return p.Category + "/" + p.Name
}

// CPV returns "category/name-version".
func (p Package) CPV() string {
	return p.CP() + "-" + p.Version
}

func (p Package) String() string {
	if p.Revision != "" && p.Revision != "0" {
		return p.CPV() + "-r" + p.Revision
	}
	return p.CPV()
}

// Candidate is one newer upstream release. URL holds several
// space-separated URLs when a release ships more than one file.
type Candidate struct {
	URL        string
	Version    string
	Handler    string
	Confidence int
}

// URLs splits URL into its parts.
func (c Candidate) URLs() []string {
	return strings.Fields(c.URL)
}

// Options carries per-package scan settings.
type Options struct {
	Rules version.Rules
}

// VersionRules returns the package's version rules, or defaults when it
// names none.
func (o Options) VersionRules(defaults ...string) []string {
	if o.Rules.Version != nil {
		return o.Rules.Version
	}
	if len(defaults) == 0 {
		return nil
	}
	return defaults
}

// Release is an upstream release as reported by a remote index, before
// mangling and filtering.
type Release struct {
	Version string
	URLs    []string
}
