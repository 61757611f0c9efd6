package cran

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/coretest"
)

const sampleDescription = `Package: ggplot2
Version: 3.4.4
Title: Create Elegant Data Visualisations Using the Grammar of Graphics
Description: A system for 'declaratively' creating graphics,
    based on "The Grammar of Graphics".
License: MIT + file LICENSE
Imports: cli, glue, grDevices, grid, gtable (>= 0.1.1), isoband,
    lifecycle (> 1.0.1), MASS, mgcv, rlang (>= 1.1.0), scales (>=
    1.2.0), stats, tibble, vctrs (>= 0.5.0), withr (>= 2.5.0)
Published: 2023-10-12
NeedsCompilation: no
`

func TestScan(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/web/packages/dplyr/DESCRIPTION", func(w http.ResponseWriter, r *http.Request) {
		desc := `Package: dplyr
Version: 1.1.4
Title: A Grammar of Data Manipulation
License: MIT + file LICENSE
Published: 2023-11-17
`
		_, _ = w.Write([]byte(desc))
	})

	mux.HandleFunc("/src/contrib/Archive/dplyr/", func(w http.ResponseWriter, r *http.Request) {
		html := `<html><body>
<a href="dplyr_1.1.3.tar.gz">dplyr_1.1.3.tar.gz</a>
<a href="dplyr_1.1.2.tar.gz">dplyr_1.1.2.tar.gz</a>
<a href="dplyr_1.0.0.tar.gz">dplyr_1.0.0.tar.gz</a>
</body></html>`
		_, _ = w.Write([]byte(html))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	h := New(server.URL, coretest.Env(t))
	pkg := coretest.Package("dev-R", "dplyr", "1.1.2")

	found, err := h.Scan(context.Background(), pkg, "mirror://cran/src/contrib/dplyr_1.1.2.tar.gz", core.Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(found), found)
	}
	if found[0].Version != "1.1.3" || found[0].URL != server.URL+"/src/contrib/Archive/dplyr/dplyr_1.1.3.tar.gz" {
		t.Errorf("unexpected archived candidate: %+v", found[0])
	}
	if found[1].Version != "1.1.4" || found[1].URL != server.URL+"/src/contrib/dplyr_1.1.4.tar.gz" {
		t.Errorf("unexpected current candidate: %+v", found[1])
	}
}

func TestScanWithoutArchive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/web/packages/newpkg/DESCRIPTION", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Package: newpkg\nVersion: 0.2-1\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	h := New(server.URL, coretest.Env(t))
	found, err := h.ScanIdentity(context.Background(), coretest.Package("dev-R", "newpkg", "0.1"), "newpkg", core.Options{})
	if err != nil {
		t.Fatalf("ScanIdentity failed: %v", err)
	}
	if len(found) != 1 || found[0].Version != "0.2.1" {
		t.Fatalf("expected single 0.2.1 candidate, got %+v", found)
	}
}

func TestScanNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer server.Close()

	h := New(server.URL, coretest.Env(t))
	if _, err := h.ScanIdentity(context.Background(), coretest.Package("dev-R", "nope", "1.0"), "nope", core.Options{}); err == nil {
		t.Fatal("expected error for missing package")
	}
}

func TestParseDescription(t *testing.T) {
	desc := parseDescription(sampleDescription)

	if desc.Package != "ggplot2" {
		t.Errorf("expected Package 'ggplot2', got %q", desc.Package)
	}
	if desc.Version != "3.4.4" {
		t.Errorf("expected Version '3.4.4', got %q", desc.Version)
	}
}

func TestParseArchiveVersions(t *testing.T) {
	html := `<a href="R6_2.5.0.tar.gz">R6_2.5.0.tar.gz</a> <a href="R6_2.5.0.tar.gz">x</a> <a href="xR6_9.9.tar.gz">y</a> <a href="R6_2.4.1-1.tar.gz">z</a>`
	got := parseArchiveVersions(html, "R6")
	if len(got) != 2 || got[0] != "2.5.0" || got[1] != "2.4.1-1" {
		t.Errorf("unexpected versions: %v", got)
	}
}

func TestPackageName(t *testing.T) {
	pkg := coretest.Package("dev-R", "local", "1.0")
	tests := []struct {
		url  string
		want string
	}{
		{"mirror://cran/src/contrib/dplyr_1.1.4.tar.gz", "dplyr"},
		{"mirror://cran/src/contrib/Archive/data.table/data.table_1.14.0.tar.gz", "data.table"},
		{"mirror://cran/bin/windows/foo.zip", "local"},
	}
	for _, tt := range tests {
		if got := core.RemoteName(tarballRe, tt.url, pkg); got != tt.want {
			t.Errorf("RemoteName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestURLBuilder(t *testing.T) {
	h := New("https://cran.r-project.org", coretest.Env(t))
	urls := h.urls

	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{"releases", func() string { return urls.Releases("ggplot2") }, "https://cran.r-project.org/web/packages/ggplot2/DESCRIPTION"},
		{"download", func() string { return urls.Download("ggplot2", "3.4.4") }, "https://cran.r-project.org/src/contrib/ggplot2_3.4.4.tar.gz"},
		{"download no version", func() string { return urls.Download("ggplot2", "") }, ""},
		{"archive download", func() string { return urls.ArchiveDownload("ggplot2", "3.4.3") }, "https://cran.r-project.org/src/contrib/Archive/ggplot2/ggplot2_3.4.3.tar.gz"},
		{"project", func() string { return urls.Project("ggplot2") }, "https://cran.r-project.org/package=ggplot2"},
		{"purl", func() string { return urls.PURL("ggplot2", "3.4.4") }, "pkg:cran/ggplot2@3.4.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
