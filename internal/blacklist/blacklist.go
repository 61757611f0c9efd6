// Package blacklist holds the static tables that keep the scanner away from
// known bad versions, packages and hosts.
package blacklist

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"

	"github.com/git-pkgs/upstream/internal/version"
)

//go:embed default.toml
var defaultTables []byte

type file struct {
	Versions []string `toml:"versions"`
	Packages []string `toml:"packages"`
	ScanDir  struct {
		URLs []string `toml:"urls"`
	} `toml:"scan-dir"`
	BruteForce struct {
		Packages []string `toml:"packages"`
		URLs     []string `toml:"urls"`
	} `toml:"brute-force"`
	Robots struct {
		ExemptDomains []string `toml:"exempt-domains"`
	} `toml:"robots"`
}

// Lists is a parsed, read-only set of tables. Patterns match from the start
// of the subject, like Python's re.match.
type Lists struct {
	Versions           []version.Atom
	Packages           []*regexp.Regexp
	ScanDirURLs        []*regexp.Regexp
	BruteForcePackages []*regexp.Regexp
	BruteForceURLs     []*regexp.Regexp
	RobotsExempt       []*regexp.Regexp
}

// Default returns the tables compiled into the binary.
func Default() *Lists {
	l, err := Parse(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("blacklist: embedded tables: %v", err))
	}
	return l
}

// Load reads tables from a TOML file.
func Load(path string) (*Lists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return l, nil
}

// Parse decodes TOML tables.
func Parse(data []byte) (*Lists, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	l := &Lists{}
	for _, s := range f.Versions {
		a, err := version.ParseAtom(s)
		if err != nil {
			return nil, err
		}
		l.Versions = append(l.Versions, a)
	}

	var err error
	if l.Packages, err = compileAll(f.Packages); err != nil {
		return nil, err
	}
	if l.ScanDirURLs, err = compileAll(f.ScanDir.URLs); err != nil {
		return nil, err
	}
	if l.BruteForcePackages, err = compileAll(f.BruteForce.Packages); err != nil {
		return nil, err
	}
	if l.BruteForceURLs, err = compileAll(f.BruteForce.URLs); err != nil {
		return nil, err
	}
	if l.RobotsExempt, err = compileAll(f.Robots.ExemptDomains); err != nil {
		return nil, err
	}
	return l, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p + ")")
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func firstMatch(res []*regexp.Regexp, s string) (string, bool) {
	for _, re := range res {
		if re.MatchString(s) {
			return re.String(), true
		}
	}
	return "", false
}

// PackageBlacklisted reports whether category/name must not be scanned.
func (l *Lists) PackageBlacklisted(cp string) bool {
	_, ok := firstMatch(l.Packages, cp)
	return ok
}

// ScanDirBlacklisted returns the rule forbidding a directory crawl of u.
func (l *Lists) ScanDirBlacklisted(u string) (string, bool) {
	return firstMatch(l.ScanDirURLs, u)
}

// BruteForceBlacklisted returns the rule forbidding brute force for the
// package or URL.
func (l *Lists) BruteForceBlacklisted(cp, u string) (string, bool) {
	if rule, ok := firstMatch(l.BruteForcePackages, cp); ok {
		return rule, true
	}
	return firstMatch(l.BruteForceURLs, u)
}

// RobotsExempt reports whether robots.txt is skipped for host.
func (l *Lists) RobotsExemptHost(host string) bool {
	_, ok := firstMatch(l.RobotsExempt, host)
	return ok
}
