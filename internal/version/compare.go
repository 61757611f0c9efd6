package version

import (
	"strconv"
	"strings"

	"github.com/git-pkgs/vers"
)

// Order is the result of comparing two versions.
type Order int

const (
	Less    Order = -1
	Equal   Order = 0
	Greater Order = 1
)

func (o Order) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	}
	return "equal"
}

// Reverse flips Less and Greater.
func (o Order) Reverse() Order { return -o }

func orderOf(n int) Order {
	switch {
	case n < 0:
		return Less
	case n > 0:
		return Greater
	}
	return Equal
}

// CompareFunc orders two version strings.
type CompareFunc func(a, b string) Order

// NativeComparator is an ecosystem ordering consulted before the component
// fallback. ok is false when the pair is not comparable by it.
type NativeComparator interface {
	Compare(a, b string) (o Order, ok bool)
}

// VersComparator orders semantic versions with github.com/git-pkgs/vers.
// It declines anything vers would only parse loosely, and pairs vers calls
// equal although they are spelled differently.
type VersComparator struct{}

func (VersComparator) Compare(a, b string) (Order, bool) {
	if !vers.SemanticVersionRegex.MatchString(a) || !vers.SemanticVersionRegex.MatchString(b) {
		return Equal, false
	}
	o := orderOf(vers.Compare(a, b))
	if o == Equal {
		return Equal, false
	}
	return o, true
}

// FallbackCompare orders two versions component by component. Numeric
// components compare by value and alpha components lexicographically. When
// the kinds differ at the first divergence, the shorter sequence is smaller;
// on equal length alpha sorts below numeric. A strict prefix is smaller.
func FallbackCompare(a, b string) Order {
	if a == b {
		return Equal
	}
	ca, cb := Split(a), Split(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		if x.Kind != y.Kind {
			if len(ca) != len(cb) {
				return orderOf(len(ca) - len(cb))
			}
			if x.Kind == Alpha {
				return Less
			}
			return Greater
		}
		var o Order
		if x.Kind == Numeric {
			o = compareDigits(x.Text, y.Text)
		} else {
			o = orderOf(strings.Compare(x.Text, y.Text))
		}
		if o != Equal {
			return o
		}
	}
	if len(ca) != len(cb) {
		return orderOf(len(ca) - len(cb))
	}
	// Same components, different spelling ("1.02" vs "1.2"): keep the order total.
	return orderOf(strings.Compare(a, b))
}

// compareDigits compares two digit strings numerically without overflow.
func compareDigits(a, b string) Order {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return orderOf(len(a) - len(b))
	}
	return orderOf(strings.Compare(a, b))
}

// CPANCompare orders CPAN versions as decimal numbers, deferring to fallback
// when either side is not a plain decimal.
func CPANCompare(fallback CompareFunc) CompareFunc {
	return func(a, b string) Order {
		fa, errA := strconv.ParseFloat(a, 64)
		fb, errB := strconv.ParseFloat(b, 64)
		if errA != nil || errB != nil {
			return fallback(a, b)
		}
		switch {
		case fa < fb:
			return Less
		case fa > fb:
			return Greater
		}
		return Equal
	}
}
