package version

import (
	"regexp"
	"strings"
)

var keyPartRe = regexp.MustCompile(`\d+|[a-z]+|\.|-`)

var keyReplace = map[string]string{
	"pre":     "c",
	"preview": "c",
	"-":       "final-",
	"rc":      "c",
	"dev":     "@",
}

// SortKey decomposes v the way setuptools' legacy parser does: numeric
// parts zero padded to eight digits, other parts prefixed with "*", trailing
// zero parts dropped before a marker and a closing "*final".
func SortKey(v string) []string {
	var parts []string
	for _, part := range keyParts(strings.ToLower(v)) {
		if strings.HasPrefix(part, "*") {
			if part < "*final" {
				for len(parts) > 0 && parts[len(parts)-1] == "*final-" {
					parts = parts[:len(parts)-1]
				}
			}
			for len(parts) > 0 && parts[len(parts)-1] == "00000000" {
				parts = parts[:len(parts)-1]
			}
		}
		parts = append(parts, part)
	}
	return parts
}

func keyParts(s string) []string {
	var out []string
	emit := func(p string) {
		if r, ok := keyReplace[p]; ok {
			p = r
		}
		if p == "" || p == "." {
			return
		}
		if isDigit(p[0]) {
			if len(p) < 8 {
				p = strings.Repeat("0", 8-len(p)) + p
			}
			out = append(out, p)
			return
		}
		out = append(out, "*"+p)
	}
	last := 0
	for _, loc := range keyPartRe.FindAllStringIndex(s, -1) {
		emit(s[last:loc[0]])
		emit(s[loc[0]:loc[1]])
		last = loc[1]
	}
	emit(s[last:])
	return append(out, "*final")
}

// IsNightly reports whether candidate looks like a date stamped snapshot
// that a package at base is not already tracking.
func IsNightly(base, candidate string) bool {
	return IsNightlyKeys(SortKey(base), SortKey(candidate))
}

// IsNightlyKeys applies the snapshot heuristic to decomposed versions: the
// lengths differ, the candidate has exactly two parts and its first part is
// an eight character token not starting with "0000".
func IsNightlyKeys(base, candidate []string) bool {
	if len(base) == len(candidate) || len(candidate) != 2 {
		return false
	}
	first := candidate[0]
	return len(first) == 8 && !strings.HasPrefix(first, "0000")
}
