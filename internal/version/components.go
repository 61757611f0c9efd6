// Package version decomposes, orders, mangles and filters version strings.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidLevel is returned when a component index outside the version is
// requested for incrementing.
var ErrInvalidLevel = errors.New("invalid version level")

// Kind tags a version component.
type Kind uint8

const (
	Numeric Kind = iota
	Alpha
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "alpha"
}

// Component is one piece of a decomposed version. Numeric components keep
// their digits verbatim so that leading zeros survive a round trip.
type Component struct {
	Kind Kind
	Text string
}

// Components is a decomposed version string.
type Components []Component

// Split breaks v on digit, lowercase letter and "." boundaries. Dots are
// dropped; any other run of characters becomes an alpha component, which
// keeps separators like "_" or "-" in place for String.
func Split(v string) Components {
	var out Components
	i := 0
	for i < len(v) {
		c := v[i]
		j := i + 1
		switch {
		case c == '.':
			i = j
			continue
		case isDigit(c):
			for j < len(v) && isDigit(v[j]) {
				j++
			}
			out = append(out, Component{Kind: Numeric, Text: v[i:j]})
		case isLower(c):
			for j < len(v) && isLower(v[j]) {
				j++
			}
			out = append(out, Component{Kind: Alpha, Text: v[i:j]})
		default:
			for j < len(v) && !isDigit(v[j]) && !isLower(v[j]) && v[j] != '.' {
				j++
			}
			out = append(out, Component{Kind: Alpha, Text: v[i:j]})
		}
		i = j
	}
	return out
}

// String joins the components back into a version, placing a "." between
// two adjacent numeric components only.
func (cs Components) String() string {
	var b strings.Builder
	for i, c := range cs {
		b.WriteString(c.Text)
		if i+1 < len(cs) && c.Kind == Numeric && cs[i+1].Kind == Numeric {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// Clone returns a copy that can be modified independently.
func (cs Components) Clone() Components {
	out := make(Components, len(cs))
	copy(out, cs)
	return out
}

// Increment returns a copy with the numeric component at level bumped by one
// and every less significant numeric component reset to zero. An alpha
// component at level is left untouched.
func (cs Components) Increment(level int) (Components, error) {
	if level < 0 || level >= len(cs) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidLevel, level, len(cs))
	}
	out := cs.Clone()
	for i := len(out) - 1; i > level; i-- {
		if out[i].Kind == Numeric {
			out[i].Text = "0"
		}
	}
	if out[level].Kind != Numeric {
		return out, nil
	}
	n, err := strconv.ParseUint(out[level].Text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: component %q: %v", ErrInvalidLevel, out[level].Text, err)
	}
	width := len(out[level].Text)
	out[level].Text = fmt.Sprintf("%0*d", width, n+1)
	return out, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
