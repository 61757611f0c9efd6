package core

import (
	"errors"
	"regexp"
	"strings"
)

// RemoteName extracts a remote identity from url using the first capture
// group of re, falling back to the local package name.
func RemoteName(re *regexp.Regexp, url string, pkg Package) string {
	if re != nil {
		if m := re.FindStringSubmatch(url); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return pkg.Name
}

// WrapNotFound turns a 404 from the client into a NotFoundError.
func WrapNotFound(handler, name string, err error) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.IsNotFound() {
		return &NotFoundError{Handler: handler, Name: name}
	}
	return err
}

// Base is embedded by handlers to supply Name, Confidence and Priority.
type Base struct {
	HandlerName       string
	HandlerConfidence int
	HandlerPriority   int
}

func (b Base) Name() string    { return b.HandlerName }
func (b Base) Confidence() int { return b.HandlerConfidence }
func (b Base) Priority() int   { return b.HandlerPriority }

// TrimTagPrefix strips a leading project name or "release" word from a
// forge tag, so "foo-1.2" and "release_1.2" both read as "1.2".
func TrimTagPrefix(tag string, names ...string) string {
	lower := strings.ToLower(tag)
	prefixes := append(append([]string(nil), names...), "release", "rel", "version")
	for _, n := range prefixes {
		n = strings.ToLower(n)
		if n == "" || !strings.HasPrefix(lower, n) {
			continue
		}
		rest := tag[len(n):]
		if len(rest) > 1 && (rest[0] == '-' || rest[0] == '_' || rest[0] == '.') {
			return rest[1:]
		}
	}
	return tag
}
