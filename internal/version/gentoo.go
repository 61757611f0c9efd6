package version

import (
	"regexp"
	"strings"
)

var (
	gentooRe       = regexp.MustCompile(`^(\d+)((?:\.\d+)*)([a-z]?)((?:_(?:alpha|beta|pre|rc|p)\d*)*)(?:-r(\d+))?$`)
	gentooSuffixRe = regexp.MustCompile(`_(alpha|beta|pre|rc|p)(\d*)`)
)

var suffixRank = map[string]int{
	"alpha": 0,
	"beta":  1,
	"pre":   2,
	"rc":    3,
	"p":     4,
}

// GentooComparator orders versions written in Gentoo's version grammar
// (1.2.3b_rc1_p2-r1). Pairs where either side is outside the grammar are
// declined. Versions the grammar considers equal ("1.0" and "1.00") are
// ordered by their spelling so that only identical strings compare Equal.
type GentooComparator struct{}

func (GentooComparator) Compare(a, b string) (Order, bool) {
	ma, mb := gentooRe.FindStringSubmatch(a), gentooRe.FindStringSubmatch(b)
	if ma == nil || mb == nil {
		return Equal, false
	}
	if o := compareGentoo(ma, mb); o != Equal {
		return o, true
	}
	return orderOf(strings.Compare(a, b)), true
}

func compareGentoo(a, b []string) Order {
	if o := compareDigits(a[1], b[1]); o != Equal {
		return o
	}

	da, db := strings.Split(a[2], "."), strings.Split(b[2], ".")
	da, db = da[1:], db[1:]
	for i := 0; i < len(da) && i < len(db); i++ {
		x, y := da[i], db[i]
		var o Order
		if strings.HasPrefix(x, "0") || strings.HasPrefix(y, "0") {
			o = orderOf(strings.Compare(strings.TrimRight(x, "0"), strings.TrimRight(y, "0")))
		} else {
			o = compareDigits(x, y)
		}
		if o != Equal {
			return o
		}
	}
	if len(da) != len(db) {
		return orderOf(len(da) - len(db))
	}

	if o := orderOf(strings.Compare(a[3], b[3])); o != Equal {
		return o
	}

	sa := gentooSuffixRe.FindAllStringSubmatch(a[4], -1)
	sb := gentooSuffixRe.FindAllStringSubmatch(b[4], -1)
	for i := 0; i < len(sa) && i < len(sb); i++ {
		if sa[i][1] != sb[i][1] {
			return orderOf(suffixRank[sa[i][1]] - suffixRank[sb[i][1]])
		}
		if o := compareDigits(orZero(sa[i][2]), orZero(sb[i][2])); o != Equal {
			return o
		}
	}
	// An extra _p suffix is newer, any other extra suffix is older.
	switch {
	case len(sa) > len(sb):
		if sa[len(sb)][1] == "p" {
			return Greater
		}
		return Less
	case len(sb) > len(sa):
		if sb[len(sa)][1] == "p" {
			return Less
		}
		return Greater
	}

	return compareDigits(orZero(a[5]), orZero(b[5]))
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// ChainComparator asks each comparator in turn and returns the first
// answer.
type ChainComparator []NativeComparator

func (c ChainComparator) Compare(a, b string) (Order, bool) {
	for _, n := range c {
		if o, ok := n.Compare(a, b); ok {
			return o, true
		}
	}
	return Equal, false
}
