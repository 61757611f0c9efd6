package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"0", "1", "1.0", "1.0.0", "1.02", "1.2", "1.2.3", "1.10", "1.0a", "1.0b",
	"1.0_rc1", "1.0_beta2", "1.0-rc1", "2.0rc1", "2.0", "10.0", "20230401",
	"0.11", "0.1.1", "v1.2", "1.2.3.4.5", "1_0", "RC1", "abc", "",
	"1.0_rc2", "1.0_p1", "1.0_alpha", "1.0_pre1", "1_2", "1.0.0-beta.2", "1.0-r1", "1.0_rc1_p1",
}

// gentooCorpus holds versions in Gentoo's grammar, the form every candidate
// takes after the default mangling.
var gentooCorpus = []string{
	"0", "1", "1.0", "1.0.0", "1.00", "1.01", "1.02", "1.2", "1.2.3", "1.10", "1.010", "1.001",
	"1.09", "1.0a", "1.0b", "1.0z", "1.0_alpha", "1.0_alpha1", "1.0_alpha_p1", "1.0_beta2",
	"1.0_pre1", "1.0_rc1", "1.0_rc2", "1.0_rc1_p1", "1.0_p", "1.0_p1", "1.0_p1_alpha", "1.0_p2",
	"1.0-r1", "1.0_p1-r2", "1.0.1a_beta1", "2.0_rc1", "2.0", "10.0", "20230401", "0.11",
	"0.1.1", "1.2.3.4.5",
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want Components
	}{
		{"1.2.3", Components{{Numeric, "1"}, {Numeric, "2"}, {Numeric, "3"}}},
		{"1.0rc1", Components{{Numeric, "1"}, {Numeric, "0"}, {Alpha, "rc"}, {Numeric, "1"}}},
		{"1.0_beta2", Components{{Numeric, "1"}, {Numeric, "0"}, {Alpha, "_"}, {Alpha, "beta"}, {Numeric, "2"}}},
		{"1.02", Components{{Numeric, "1"}, {Numeric, "02"}}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.in))
		})
	}
}

func TestSplitJoinRoundTrip(t *testing.T) {
	for _, v := range []string{"1.2.3", "1.0rc1", "1.0_beta2", "1.02", "2.0-rc1", "3a"} {
		assert.Equal(t, v, Split(v).String(), "round trip of %q", v)
	}
}

func TestIncrement(t *testing.T) {
	cs := Split("1.2.3")

	got, err := cs.Increment(2)
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", got.String())

	got, err = cs.Increment(1)
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", got.String())

	got, err = cs.Increment(0)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.String())

	assert.Equal(t, "1.2.3", cs.String(), "receiver must not change")

	got, err = Split("1.09").Increment(1)
	require.NoError(t, err)
	assert.Equal(t, "1.10", got.String())
}

func TestIncrementInvalidLevel(t *testing.T) {
	_, err := Split("1.2").Increment(2)
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = Split("1.2").Increment(-1)
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestFallbackCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want Order
	}{
		{"1.2", "1.3", Less},
		{"1.10", "1.9", Greater},
		{"1.2", "1.2", Equal},
		{"1.2", "1.2.1", Less},
		{"1.0a", "1.0b", Less},
		{"1.0a", "1.0.1", Less},
		{"20230401", "99999999999999999999", Less},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackCompare(tt.a, tt.b))
		})
	}
}

func TestCompareTotality(t *testing.T) {
	models := map[string]*Model{
		"native":   NewModel(),
		"fallback": NewModel(WithNative(nil)),
	}
	for name, m := range models {
		t.Run(name, func(t *testing.T) {
			for _, a := range corpus {
				assert.Equal(t, Equal, m.Compare("dev-lang/foo", a, a), "compare(%q, %q)", a, a)
				for _, b := range corpus {
					ab := m.Compare("dev-lang/foo", a, b)
					ba := m.Compare("dev-lang/foo", b, a)
					assert.Equal(t, ab, ba.Reverse(), "compare(%q, %q) = %s, reverse = %s", a, b, ab, ba)
				}
			}
		})
	}
}

func TestCompareTransitive(t *testing.T) {
	m := NewModel()
	for _, a := range gentooCorpus {
		for _, b := range gentooCorpus {
			ab := m.Compare("dev-lang/foo", a, b)
			if a != b {
				assert.NotEqual(t, Equal, ab, "compare(%q, %q)", a, b)
			}
			if ab == Greater {
				continue
			}
			for _, c := range gentooCorpus {
				if m.Compare("dev-lang/foo", b, c) == Greater {
					continue
				}
				assert.NotEqual(t, Greater, m.Compare("dev-lang/foo", a, c), "%q <= %q <= %q", a, b, c)
			}
		}
	}
}

func TestGentooComparator(t *testing.T) {
	tests := []struct {
		a, b string
		want Order
	}{
		{"1.0_rc1", "1.0_rc2", Less},
		{"1.0_rc1", "1.0", Less},
		{"1.0", "1.0_p1", Less},
		{"1.0a", "1.0b", Less},
		{"1.0", "1.0a", Less},
		{"1.0", "1.0.0", Less},
		{"1.0_alpha", "1.0_beta", Less},
		{"1.0_beta2", "1.0_pre1", Less},
		{"1.0_pre1", "1.0_rc1", Less},
		{"1.0_rc1", "1.0_rc1_p1", Less},
		{"1.0_p1_alpha", "1.0_p1", Less},
		{"1.0_p", "1.0_p1", Less},
		{"1.0", "1.0-r1", Less},
		{"1.01", "1.1", Less},
		{"1.10", "1.9", Greater},
		{"2.0_rc1", "1.99", Greater},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got, ok := GentooComparator{}.Compare(tt.a, tt.b)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := GentooComparator{}.Compare("1.0", "1.0-rc1")
	assert.False(t, ok, "outside the grammar")
}

func TestVersComparator(t *testing.T) {
	o, ok := VersComparator{}.Compare("1.0.0-beta.2", "1.0.0")
	require.True(t, ok)
	assert.Equal(t, Less, o)

	_, ok = VersComparator{}.Compare("1.0", "1.0.0")
	assert.False(t, ok, "equal but spelled differently")

	_, ok = VersComparator{}.Compare("1.0_rc1", "1.0_rc2")
	assert.False(t, ok, "not a semantic version")
}

func TestFilteredGentooSuffixes(t *testing.T) {
	m := NewModel()
	assert.False(t, m.Filtered("dev-lang/foo", "1.0_rc1", "1.0_rc2", nil))
	assert.False(t, m.Filtered("dev-lang/foo", "1.0", "1.0_p1", nil))
	assert.False(t, m.Filtered("dev-lang/foo", "1.0a", "1.0b", nil))
	assert.False(t, m.Filtered("dev-lang/foo", "1.0_rc1", "1.0", nil))
	assert.True(t, m.Filtered("dev-lang/foo", "1.0", "1.0_rc1", nil))
	assert.Equal(t, Less, m.Compare("x/y", "1.0", "1.0_p1"))
}

func TestHtopQuirk(t *testing.T) {
	m := NewModel(WithNative(nil))
	assert.Equal(t, Less, m.Compare("sys-process/htop", "0.11", "0.2"))
	assert.Equal(t, Greater, m.Compare("sys-process/htop", "0.13", "0.1.2"))
	assert.Equal(t, Greater, m.Compare("sys-process/other", "0.11", "0.2"))
}

func TestCPANCompare(t *testing.T) {
	cmp := CPANCompare(FallbackCompare)
	assert.Equal(t, Less, cmp("0.30", "0.301"))
	assert.Equal(t, Equal, cmp("1.0", "1.00"))
	assert.Equal(t, Less, cmp("1.2.3", "1.2.4"))
}

func TestCPANMangle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"v1.2.3", "1.2.3"},
		{"4.11", "4.110.0"},
		{"0.30", "0.300.0"},
		{"2.2201", "2.220.100"},
		{"1.2_3", "1.200.0_rc3"},
		{"0.999._002", "0.999.0_rc002"},
		{"1.02", "1.20.0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CPANMangle(tt.in))
		})
	}
}

func TestCPANMangleIdempotent(t *testing.T) {
	for _, v := range []string{"4.11", "0.30", "2.2201", "1.300", "0.5", "1.2_3", "0.999._002"} {
		once := CPANMangle(v)
		assert.Equal(t, once, CPANMangle(once), "mangling %q twice", v)
	}
}

func TestGentooMangle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"v1.2", "1.2"},
		{"1.1.0", "1.1.0"},
		{"2.0rc1", "2.0_rc1"},
		{"1.0.0-beta.2", "1.0.0_beta2"},
		{"1.0-alpha", "1.0_alpha"},
		{"3.0-dev", "3.0_pre"},
		{"1.2.3-p1", "1.2.3_p1"},
		{"1.0a", "1.0a"},
		{"1.0a1", "1.0_alpha1"},
		{"2023-04-01", "20230401"},
		{"1.0_rc1", "1.0_rc1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, GentooMangle(tt.in))
		})
	}
}

func TestManglerRules(t *testing.T) {
	m := NewMangler()

	assert.Equal(t, "1.2", m.Version("v1.2", nil))
	assert.Equal(t, "1.200.0", m.Version("1.2", []string{"cpan", "gentoo"}))
	assert.Equal(t, "1.2.3", m.Version("1_2_3", []string{"s/_/./"}))
	assert.Equal(t, "3-2-1", m.Version("1-2-3", []string{`s|(\d)-(\d)-(\d)|$3-$2-$1|`}))
	assert.Equal(t, "1.2", m.Version("1.2", []string{"no-such-rule"}))

	m.RegisterURLRule("https", func(u string) string {
		return "https" + u[len("http"):]
	})
	assert.Equal(t, "https://example.org/a", m.URL("http://example.org/a", []string{"https"}))
	assert.Equal(t, "http://example.org/a", m.URL("http://example.org/a", nil))
}

func TestNightly(t *testing.T) {
	assert.True(t, IsNightlyKeys(SortKey("2.3"), []string{"20230401", "0"}))
	assert.True(t, IsNightly("2.3", "20230401.0"))
	assert.False(t, IsNightly("2.3", "2.4"))
	assert.False(t, IsNightly("20230101", "20230401"), "package already tracks snapshots")
	assert.False(t, IsNightly("2.3", "1234"), "padded token starts with 0000")
	assert.False(t, IsNightlyKeys([]string{"2", "3"}, []string{"20230401"}))
	// A bare date decomposes to the date plus the closing marker, the same
	// two parts setuptools' legacy parse_version yields, so it counts.
	assert.True(t, IsNightly("2.3", "20230401"))
}

func TestSortKey(t *testing.T) {
	assert.Equal(t, []string{"00000002", "00000003", "*final"}, SortKey("2.3"))
	assert.Equal(t, []string{"00000001", "*final"}, SortKey("1.0.0"))
	assert.Equal(t, []string{"00000002", "*c", "00000001", "*final"}, SortKey("2.0rc1"))
}

func TestStability(t *testing.T) {
	assert.True(t, IsStable("1.1.0"))
	assert.True(t, IsStable("1.0a"))
	assert.True(t, IsStable("1.0_p1"))
	assert.False(t, IsStable("2.0_rc1"))
	assert.False(t, IsStable("2.0rc1"))
	assert.False(t, IsStable("1.0-beta"))
	assert.Equal(t, "p", Type("1.0_p1"))
	assert.Equal(t, "release", Type("1.0"))
}

func TestFiltered(t *testing.T) {
	atoms := []Atom{
		MustParseAtom(">=sys-libs/libstdc++-v3-3.4"),
		MustParseAtom("=x11-plugins/wmacpimon-001"),
	}
	m := NewModel(WithNative(nil), WithBlacklist(atoms))

	assert.True(t, m.Filtered("dev-lang/foo", "1.2", "1.2", nil), "equal")
	assert.True(t, m.Filtered("dev-lang/foo", "1.2", "1.1", nil), "older")
	assert.False(t, m.Filtered("dev-lang/foo", "1.2", "1.3", nil))
	assert.True(t, m.Filtered("sys-libs/libstdc++-v3", "3.3", "3.5", nil), "blacklisted")
	assert.False(t, m.Filtered("sys-libs/libstdc++-v3", "3.2", "3.3", nil))
	assert.True(t, m.Filtered("dev-lang/foo", "2.3", "20230401.0", nil), "nightly")
	assert.False(t, m.Filtered("dev-lang/foo", "1.2", "1.3_rc1", nil), "pre-release kept by default")
}

func TestFilteredMonotonic(t *testing.T) {
	m := NewModel()
	for _, base := range corpus {
		for _, cand := range corpus {
			if m.Compare("dev-lang/foo", base, cand) != Less {
				assert.True(t, m.Filtered("dev-lang/foo", base, cand, nil), "base %q candidate %q", base, cand)
			}
		}
	}
}

func TestFilteredPreRelease(t *testing.T) {
	ignore := NewModel(WithPreRelease(true, false))
	assert.True(t, ignore.Filtered("dev-lang/foo", "1.0.0", "2.0_rc1", nil))
	assert.False(t, ignore.Filtered("dev-lang/foo", "1.0.0", "1.1.0", nil))

	ifStable := NewModel(WithPreRelease(false, true))
	assert.True(t, ifStable.Filtered("dev-lang/foo", "1.0.0", "2.0_rc1", nil))
	assert.False(t, ifStable.Filtered("dev-lang/foo", "1.0_beta1", "2.0_rc1", nil))
}

func TestFilteredCustomComparator(t *testing.T) {
	m := NewModel()
	cmp := CPANCompare(FallbackCompare)
	assert.False(t, m.Filtered("dev-perl/Moose", "0.30", "0.301", cmp))
	assert.True(t, m.Filtered("dev-perl/Moose", "0.30", "0.300", cmp))
}

func TestAtoms(t *testing.T) {
	a, err := ParseAtom("~app-backup/backup-manager-0.7.15")
	require.NoError(t, err)
	assert.Equal(t, "app-backup/backup-manager", a.CP)
	assert.Equal(t, "0.7.15", a.Version)
	assert.True(t, a.Match("app-backup/backup-manager", "0.7.15", FallbackCompare))
	assert.False(t, a.Match("app-backup/backup-manager", "0.7.16", FallbackCompare))

	glob := MustParseAtom("=dev-lang/foo-1.2*")
	assert.True(t, glob.Match("dev-lang/foo", "1.2.5", FallbackCompare))
	assert.False(t, glob.Match("dev-lang/foo", "1.3", FallbackCompare))
	assert.Equal(t, "=dev-lang/foo-1.2*", glob.String())

	bare := MustParseAtom("sys-kernel/xbox-sources")
	assert.True(t, bare.Match("sys-kernel/xbox-sources", "9.9", FallbackCompare))

	_, err = ParseAtom(">=nocategory-1.0")
	assert.Error(t, err)
}

func TestSplitCPV(t *testing.T) {
	cp, v, r, ok := SplitCPV("dev-lang/foo-1.2-r3")
	require.True(t, ok)
	assert.Equal(t, "dev-lang/foo", cp)
	assert.Equal(t, "1.2", v)
	assert.Equal(t, "3", r)

	cp, v, _, ok = SplitCPV("sys-libs/libstdc++-v3-3.4")
	require.True(t, ok)
	assert.Equal(t, "sys-libs/libstdc++-v3", cp)
	assert.Equal(t, "3.4", v)

	_, _, _, ok = SplitCPV("dev-lang/foo")
	assert.False(t, ok)
}
