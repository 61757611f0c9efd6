package upstream_test

import (
	"context"
	"testing"

	"github.com/git-pkgs/upstream"
)

func BenchmarkScan(b *testing.B) {
	eng := newEngine(b, pypiServer(b))
	pkg, _ := upstream.ParsePackage("dev-python/requests-2.31.0")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = eng.Scan(ctx, pkg, upstream.Options{}, "mirror://pypi/r/requests/requests-2.31.0.tar.gz")
	}
}

func BenchmarkScanAll_Parallel(b *testing.B) {
	eng := newEngine(b, pypiServer(b))
	pkg, _ := upstream.ParsePackage("dev-python/requests-2.31.0")
	jobs := make([]upstream.Job, 32)
	for i := range jobs {
		jobs[i] = upstream.Job{Package: pkg, URLs: []string{"mirror://pypi/r/requests/requests-2.31.0.tar.gz"}}
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = eng.ScanAll(ctx, jobs, 8)
	}
}

func BenchmarkSupportedHandlers(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = upstream.SupportedHandlers()
	}
}

func BenchmarkDefaultURL(b *testing.B) {
	handlers := []string{"cargo", "npm", "pypi", "rubygems", "golang"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = upstream.DefaultURL(handlers[i%len(handlers)])
	}
}
