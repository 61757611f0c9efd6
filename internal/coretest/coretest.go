// Package coretest builds handler environments for tests.
package coretest

import (
	"context"
	"testing"

	"github.com/git-pkgs/upstream/internal/config"
	"github.com/git-pkgs/upstream/internal/core"
)

// Env returns an Env with robots.txt checks off and no response cache.
// mutate adjusts the configuration before the Env is built.
func Env(t testing.TB, mutate ...func(*config.Config)) *core.Env {
	t.Helper()
	cfg := config.Default()
	cfg.SkipRobotsTxt = true
	for _, m := range mutate {
		m(&cfg)
	}
	env, err := core.NewEnv(context.Background(), cfg)
	if err != nil {
		t.Fatalf("building env: %v", err)
	}
	t.Cleanup(func() { _ = env.Close() })
	return env
}

// Package is a convenience constructor for tests.
func Package(category, name, version string) core.Package {
	return core.Package{Category: category, Name: name, Version: version}
}
