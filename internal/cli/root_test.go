package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-pkgs/upstream"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2026-01-01")
	defer SetVersion("", "", "")

	assert.Equal(t, "1.0.0", version)
	assert.Equal(t, "abc123", commit)
	assert.Equal(t, "2026-01-01", date)
}

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func pypiServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/requests/json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "info": {"name": "requests"},
  "releases": {
    "2.31.0": [{"url": "https://files.example/requests-2.31.0.tar.gz", "packagetype": "sdist"}],
    "2.32.3": [{"url": "https://files.example/requests-2.32.3.tar.gz", "packagetype": "sdist"}]
  }
}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func engineArgs(server *httptest.Server) []string {
	return []string{
		"--config", "/nonexistent/upstream.yaml",
		"--set", "skip-robots-txt=true",
		"--set", "handlers-exclude=generic",
		"--base-url", "pypi=" + server.URL,
	}
}

func TestHandlersCommand(t *testing.T) {
	out, _, err := run(t, "", "handlers")
	require.NoError(t, err)

	assert.Contains(t, out, "pypi")
	assert.Contains(t, out, "https://pypi.org")
	assert.Contains(t, out, "generic")
	assert.Equal(t, len(upstream.SupportedHandlers()), strings.Count(out, "\n"))
}

func TestURLsCommand(t *testing.T) {
	out, _, err := run(t, "", "urls", "--config", "/nonexistent/upstream.yaml", "cargo", "serde", "1.0.195")
	require.NoError(t, err)

	assert.Contains(t, out, "purl:     pkg:cargo/serde@1.0.195")
	assert.Contains(t, out, "project:  https://crates.io/crates/serde")
}

func TestURLsCommandUnknownHandler(t *testing.T) {
	_, _, err := run(t, "", "urls", "--config", "/nonexistent/upstream.yaml", "nope", "serde")
	assert.ErrorContains(t, err, "unknown handler")
}

func TestScanCommand(t *testing.T) {
	server := pypiServer(t)
	args := append([]string{"scan", "dev-python/requests-2.31.0", "mirror://pypi/r/requests/requests-2.31.0.tar.gz"}, engineArgs(server)...)

	out, _, err := run(t, "", args...)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/requests-2.32.3.tar.gz 2.32.3 pypi 100\n", out)
}

func TestScanCommandPURLJSON(t *testing.T) {
	server := pypiServer(t)
	args := append([]string{"scan", "dev-python/requests-2.31.0", "--purl", "pkg:pypi/requests", "--json"}, engineArgs(server)...)

	out, _, err := run(t, "", args...)
	require.NoError(t, err)

	var got []jsonCandidate
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "2.32.3", got[0].Version)
	assert.Empty(t, got[0].Package)
}

func TestScanCommandHandlerRemote(t *testing.T) {
	server := pypiServer(t)
	args := append([]string{"scan", "dev-python/python-requests-2.31.0", "--handler", "pypi", "--remote", "requests"}, engineArgs(server)...)

	out, _, err := run(t, "", args...)
	require.NoError(t, err)
	assert.Contains(t, out, "2.32.3")
}

func TestScanCommandNeedsSource(t *testing.T) {
	_, _, err := run(t, "", "scan", "--config", "/nonexistent/upstream.yaml", "dev-python/requests-2.31.0")
	assert.ErrorContains(t, err, "no source URLs")
}

func TestScanCommandBatch(t *testing.T) {
	server := pypiServer(t)
	stdin := `# packages
dev-python/requests-2.31.0 mirror://pypi/r/requests/requests-2.31.0.tar.gz

dev-python/requests-2.32.3 mirror://pypi/r/requests/requests-2.32.3.tar.gz
`
	args := append([]string{"scan", "--batch", "-", "--jobs", "2"}, engineArgs(server)...)

	out, _, err := run(t, stdin, args...)
	require.NoError(t, err)
	assert.Equal(t, "dev-python/requests-2.31.0 https://files.example/requests-2.32.3.tar.gz 2.32.3 pypi 100\n", out)
}

func TestReadJobs(t *testing.T) {
	jobs, err := readJobs(strings.NewReader("dev-libs/foo-1.0 https://a/foo-1.0.tar.gz https://b/foo-1.0.zip\n# skip\n\ndev-libs/bar-2.0-r1\n"), upstream.Options{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "foo", jobs[0].Package.Name)
	assert.Equal(t, []string{"https://a/foo-1.0.tar.gz", "https://b/foo-1.0.zip"}, jobs[0].URLs)
	assert.Equal(t, "1", jobs[1].Package.Revision)
	assert.Empty(t, jobs[1].URLs)

	_, err = readJobs(strings.NewReader("notapackage\n"), upstream.Options{})
	assert.ErrorContains(t, err, "line 1")
}
