package kde

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-pkgs/upstream/internal/config"
	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/coretest"
	"github.com/git-pkgs/upstream/internal/generic"
)

func listing(files ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	for _, f := range files {
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a>\n", f, f)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func kdeEnv(t *testing.T, server *httptest.Server) *core.Env {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirrors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kde:\n  - "+server.URL+"\n"), 0o644))
	return coretest.Env(t, func(c *config.Config) { c.MirrorsFile = path })
}

func TestScanUnstableAlsoScansStable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/unstable/kio/":
			_, _ = w.Write([]byte(listing("kio-5.90.0.tar.xz", "kio-5.91.0.tar.xz")))
		case "/stable/kio/":
			_, _ = w.Write([]byte(listing("kio-5.92.0.tar.xz")))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	h := New(kdeEnv(t, server))
	found, err := h.Scan(context.Background(), coretest.Package("kde-frameworks", "kio", "5.90.0"), "mirror://kde/unstable/kio/kio-5.90.0.tar.xz", core.Options{})
	require.NoError(t, err)

	var got []string
	for _, c := range found {
		got = append(got, c.Version)
		assert.Equal(t, "kde", c.Handler)
		assert.Equal(t, generic.Confidence, c.Confidence)
	}
	sort.Strings(got)
	assert.Equal(t, []string{"5.91.0", "5.92.0"}, got)
}

func TestScanFallsBackToBruteForce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && r.URL.Path == "/stable/kio/kio-5.91.tar.xz" {
			w.Header().Set("Content-Type", "application/x-xz")
			w.Header().Set("Content-Length", "4096")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	h := New(kdeEnv(t, server))
	found, err := h.Scan(context.Background(), coretest.Package("kde-frameworks", "kio", "5.90"), "mirror://kde/stable/kio/kio-5.90.tar.xz", core.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "5.91", found[0].Version)
	assert.Equal(t, "kde", found[0].Handler)
	assert.Equal(t, generic.BruteForceConfidence, found[0].Confidence)
}

func TestClean(t *testing.T) {
	h := New(coretest.Env(t))
	out := h.clean([]core.Candidate{
		{Version: "5SUMS", Handler: generic.Name},
		{Version: "1.0", Handler: generic.Name, Confidence: 45},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "kde", out[0].Handler)
	assert.Equal(t, 45, out[0].Confidence)
}

func TestCanHandle(t *testing.T) {
	h := New(coretest.Env(t))
	pkg := coretest.Package("kde-frameworks", "kio", "5.90")
	assert.True(t, h.CanHandle(pkg, "mirror://kde/stable/kio/kio-5.90.tar.xz"))
	assert.False(t, h.CanHandle(pkg, "https://download.kde.org/stable/kio-5.90.tar.xz"))
}
