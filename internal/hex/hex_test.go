package hex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/coretest"
)

func TestScan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/packages/jason" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(404)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "name": "jason",
  "releases": [
    {"version": "1.4.4"},
    {"version": "1.4.3"},
    {"version": "1.4.2"},
    {"version": "1.4.0"}
  ],
  "retirements": {"1.4.3": {"reason": "security", "message": "CVE"}}
}`))
	}))
	defer server.Close()

	h := New(server.URL, coretest.Env(t))
	pkg := coretest.Package("dev-elixir", "jason", "1.4.0")

	found, err := h.Scan(context.Background(), pkg, "https://repo.hex.pm/tarballs/jason-1.4.0.tar", core.Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(found), found)
	}
	if found[0].Version != "1.4.4" || found[1].Version != "1.4.2" {
		t.Errorf("unexpected versions: %q %q", found[0].Version, found[1].Version)
	}
	if found[0].URL != "https://repo.hex.pm/tarballs/jason-1.4.4.tar" {
		t.Errorf("unexpected url: %q", found[0].URL)
	}
}

func TestPackageName(t *testing.T) {
	pkg := coretest.Package("dev-elixir", "local", "1.0")
	tests := []struct {
		url  string
		want string
	}{
		{"https://repo.hex.pm/tarballs/jason-1.4.0.tar", "jason"},
		{"https://repo.hex.pm/tarballs/phoenix_live_view-0.20.1.tar", "phoenix_live_view"},
		{"https://repo.hex.pm/tarballs/", "local"},
	}
	for _, tt := range tests {
		if got := core.RemoteName(tarballRe, tt.url, pkg); got != tt.want {
			t.Errorf("RemoteName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestURLBuilder(t *testing.T) {
	urls := New("https://hex.pm", coretest.Env(t)).URLs()

	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{"releases", func() string { return urls.Releases("phoenix") }, "https://hex.pm/api/packages/phoenix"},
		{"download", func() string { return urls.Download("phoenix", "1.7.10") }, "https://repo.hex.pm/tarballs/phoenix-1.7.10.tar"},
		{"download no version", func() string { return urls.Download("phoenix", "") }, ""},
		{"project", func() string { return urls.Project("phoenix") }, "https://hex.pm/packages/phoenix"},
		{"purl", func() string { return urls.PURL("phoenix", "1.7.10") }, "pkg:hex/phoenix@1.7.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
