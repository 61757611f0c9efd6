package fetch

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownMirror = errors.New("unknown mirror")
	ErrInvalidMirror = errors.New("invalid mirror uri")
)

const mirrorScheme = "mirror://"

//go:embed mirrors.yaml
var defaultMirrors []byte

// Mirrors maps mirror names to their base URLs.
type Mirrors struct {
	table map[string][]string
	pick  func(n int) int
}

// DefaultMirrors returns the table compiled into the binary.
func DefaultMirrors() *Mirrors {
	m, err := ParseMirrors(defaultMirrors)
	if err != nil {
		panic(fmt.Sprintf("fetch: embedded mirror table: %v", err))
	}
	return m
}

// LoadMirrors reads a YAML mirror table from path.
func LoadMirrors(path string) (*Mirrors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := ParseMirrors(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// ParseMirrors decodes a YAML mapping of name to base URL list.
func ParseMirrors(data []byte) (*Mirrors, error) {
	table := make(map[string][]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	for name, bases := range table {
		trimmed := make([]string, 0, len(bases))
		for _, b := range bases {
			if b = strings.TrimRight(b, "/"); b != "" {
				trimmed = append(trimmed, b)
			}
		}
		table[name] = trimmed
	}
	return &Mirrors{table: table, pick: rand.IntN}, nil
}

// Names lists the known mirror names.
func (m *Mirrors) Names() []string {
	names := make([]string, 0, len(m.table))
	for name := range m.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsMirror reports whether uri uses the mirror:// scheme.
func IsMirror(uri string) bool {
	return strings.HasPrefix(uri, mirrorScheme)
}

// Split returns the mirror name and path of a mirror:// URI.
func Split(uri string) (name, path string, err error) {
	rest, ok := strings.CutPrefix(uri, mirrorScheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidMirror, uri)
	}
	name, path, ok = strings.Cut(rest, "/")
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidMirror, uri)
	}
	return name, path, nil
}

// Resolve turns mirror://name/path into a concrete URL on a random mirror.
// Other URIs are returned unchanged.
func (m *Mirrors) Resolve(uri string) (string, error) {
	if !IsMirror(uri) {
		return uri, nil
	}
	name, path, err := Split(uri)
	if err != nil {
		return "", err
	}
	bases := m.table[name]
	if len(bases) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownMirror, name)
	}
	return bases[m.pick(len(bases))] + "/" + path, nil
}

// Unresolve rewrites a URL under any known mirror base back to its
// mirror:// form. Unknown URLs are returned unchanged.
func (m *Mirrors) Unresolve(u string) string {
	bestName, bestBase := "", ""
	for name, bases := range m.table {
		for _, base := range bases {
			if strings.HasPrefix(u, base+"/") && len(base) > len(bestBase) {
				bestName, bestBase = name, base
			}
		}
	}
	if bestBase == "" {
		return u
	}
	return mirrorScheme + bestName + "/" + strings.TrimPrefix(u, bestBase+"/")
}
