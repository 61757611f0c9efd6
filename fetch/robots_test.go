package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestRobotsAllowed(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			_, _ = w.Write([]byte("User-agent: upstream\nDisallow: /dist/old/\n\nUser-agent: *\nDisallow: /\n"))
		}
	}))
	defer server.Close()

	r := NewRobots("upstream")
	ctx := context.Background()

	tests := []struct {
		path string
		want bool
	}{
		{"/dist/", true},
		{"/dist/old/foo-1.0.tar.gz", false},
		{"", true},
		{"/dist/?C=M;O=D", true},
	}
	for _, tt := range tests {
		if got := r.Allowed(ctx, server.URL+tt.path); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if robotsHits.Load() != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", robotsHits.Load())
	}

	other := NewRobots("somebot")
	if other.Allowed(ctx, server.URL+"/dist/") {
		t.Error("wildcard group should deny other agents")
	}
}

func TestRobotsFailOpen(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	r := NewRobots("upstream")
	ctx := context.Background()
	for _, u := range []string{broken.URL + "/x", deadURL + "/x", missing.URL + "/x"} {
		if !r.Allowed(ctx, u) {
			t.Errorf("Allowed(%q) = false, want fail-open", u)
		}
	}
}

func TestRobotsBypass(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		robotsHits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
	}))
	defer server.Close()

	r := NewRobots("upstream", WithExempt(func(host string) bool {
		return strings.HasPrefix(host, "127.")
	}))
	ctx := context.Background()

	if !r.Allowed(ctx, server.URL+"/anything") {
		t.Error("exempt host should be allowed")
	}
	if !r.Allowed(ctx, "ftp://ftp.example.org/pub/") {
		t.Error("ftp should bypass robots.txt")
	}
	if robotsHits.Load() != 0 {
		t.Errorf("robots.txt fetched %d times, want 0", robotsHits.Load())
	}
}
