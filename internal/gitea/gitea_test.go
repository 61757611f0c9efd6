package gitea

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/coretest"
)

const releasesJSON = `[
  {"tag_name": "v1.3.0", "draft": true, "tarball_url": "https://codeberg.org/forgejo/runner/archive/v1.3.0.tar.gz"},
  {"tag_name": "v1.2.0", "tarball_url": "https://codeberg.org/forgejo/runner/archive/v1.2.0.tar.gz"},
  {"tag_name": "runner-1.1.0", "tarball_url": "https://codeberg.org/forgejo/runner/archive/runner-1.1.0.tar.gz"},
  {"tag_name": "v0.9.0", "tarball_url": "https://codeberg.org/forgejo/runner/archive/v0.9.0.tar.gz"}
]`

func TestScan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/repos/forgejo/runner/releases" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(404)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(releasesJSON))
	}))
	defer server.Close()

	h := New(server.URL, coretest.Env(t))
	pkg := coretest.Package("dev-util", "forgejo-runner", "1.0.0")

	found, err := h.Scan(context.Background(), pkg, "https://codeberg.org/forgejo/runner/archive/v1.0.0.tar.gz", core.Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(found), found)
	}
	if found[0].Version != "1.2.0" || found[1].Version != "1.1.0" {
		t.Errorf("unexpected versions: %q %q", found[0].Version, found[1].Version)
	}
	if found[0].URL != "https://codeberg.org/forgejo/runner/archive/v1.2.0.tar.gz" {
		t.Errorf("unexpected url: %q", found[0].URL)
	}
}

func TestCanHandle(t *testing.T) {
	h := New("", coretest.Env(t))
	pkg := coretest.Package("dev-util", "x", "1.0")

	tests := []struct {
		url  string
		want bool
	}{
		{"https://codeberg.org/forgejo/runner/archive/v1.0.0.tar.gz", true},
		{"https://gitea.com/gitea/tea/archive/v0.9.2.tar.gz", true},
		{"https://codeberg.org/api/v1/repos", false},
		{"https://example.org/owner/repo/archive/1.0.tar.gz", false},
	}
	for _, tt := range tests {
		if got := h.CanHandle(pkg, tt.url); got != tt.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestScanIdentityInvalid(t *testing.T) {
	h := New("", coretest.Env(t))
	if _, err := h.ScanIdentity(context.Background(), coretest.Package("dev-util", "x", "1.0"), "justaname", core.Options{}); err == nil {
		t.Fatal("expected error for remote without owner")
	}
}

func TestScanIdentityInstance(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	h := New(server.URL, coretest.Env(t))
	if _, err := h.ScanIdentity(context.Background(), coretest.Package("dev-util", "tea", "0.9"), "gitea.com/gitea/tea", core.Options{}); err != nil {
		t.Fatalf("ScanIdentity failed: %v", err)
	}
	if path != "/api/v1/repos/gitea/tea/releases" {
		t.Errorf("unexpected path: %s", path)
	}
}

func TestURLs(t *testing.T) {
	urls := New("", coretest.Env(t)).URLs()
	if got := urls.Releases("forgejo/runner"); got != "https://codeberg.org/api/v1/repos/forgejo/runner/releases" {
		t.Errorf("Releases = %q", got)
	}
	if got := urls.PURL("forgejo/runner", "1.0"); got != "pkg:gitea/forgejo/runner@1.0" {
		t.Errorf("PURL = %q", got)
	}
}
