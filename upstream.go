// Package upstream discovers newer upstream releases of installed packages.
//
// A scan takes a package at its installed version plus the URLs its sources
// were fetched from, asks every registered handler that understands one of
// those URLs for newer releases, and returns the candidates found. Handlers
// cover package indexes (PyPI, CPAN, RubyGems, crates.io, npm ...), forges
// (GitHub, GitLab, Gitea) and, as a fallback, plain directory listings and
// brute-force probing of guessed URLs.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/upstream"
//		_ "github.com/git-pkgs/upstream/all"
//	)
//
//	eng, err := upstream.New(context.Background(), upstream.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	pkg, _ := upstream.ParsePackage("dev-python/requests-2.31.0")
//	found, err := eng.Scan(ctx, pkg, upstream.Options{}, "mirror://pypi/r/requests/requests-2.31.0.tar.gz")
//
// Handlers register themselves when their package is imported. Import the
// all subpackage to register every handler.
package upstream

import (
	"context"
	"errors"
	"sync"

	"github.com/git-pkgs/purl"
	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/upstream/client"
	"github.com/git-pkgs/upstream/fetch"
	"github.com/git-pkgs/upstream/internal/config"
	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/version"
)

// Re-export types from internal/core
type (
	// Handler is the interface implemented by every release source.
	Handler = core.Handler

	// Package identifies an installed package by category/name at a version.
	Package = core.Package

	// Candidate is one newer upstream release.
	Candidate = core.Candidate

	// Options carries per-package scan settings.
	Options = core.Options

	// Rules names the version and URL mangling rules of a package.
	Rules = version.Rules

	// Config is the engine configuration.
	Config = config.Config

	// ConfigOption adjusts how LoadConfig reads configuration.
	ConfigOption = config.Option

	// NativeComparator orders versions the way the package ecosystem does.
	NativeComparator = version.NativeComparator
)

// Re-export types from client
type (
	// URLBuilder constructs the endpoints of a handler.
	URLBuilder = client.URLBuilder
)

// Error types
type (
	HTTPError     = client.HTTPError
	NotFoundError = core.NotFoundError
	ContractError = core.ContractError
)

// Re-export errors
var (
	ErrNotFound     = core.ErrNotFound
	ErrDisallowed   = fetch.ErrDisallowed
	ErrInvalidLevel = version.ErrInvalidLevel
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads configuration from defaults, UPSTREAM_* environment
// variables and any files passed with WithConfigFile.
func LoadConfig(opts ...ConfigOption) (Config, error) {
	return config.Load(opts...)
}

// WithConfigFile merges a YAML configuration file. A missing file is
// ignored.
var WithConfigFile = config.WithFile

// WithConfigOverrides sets configuration keys after every other source.
var WithConfigOverrides = config.WithOverrides

// ParsePackage splits "category/name-version[-rN]".
func ParsePackage(s string) (Package, error) {
	return core.ParsePackage(s)
}

// Option configures an Engine.
type Option func(*settings)

type settings struct {
	baseURLs map[string]string
	envOpts  []core.EnvOption
}

// WithBaseURL points a handler at another API base, such as a mirror or a
// test server.
func WithBaseURL(handler, url string) Option {
	return func(s *settings) {
		s.baseURLs[handler] = url
	}
}

// WithFetchOptions passes options to the fetch layer.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(s *settings) {
		s.envOpts = append(s.envOpts, core.WithFetchOptions(opts...))
	}
}

// WithNativeComparator replaces the ecosystem-native version ordering.
func WithNativeComparator(n NativeComparator) Option {
	return func(s *settings) {
		s.envOpts = append(s.envOpts, core.WithNativeComparator(n))
	}
}

// Engine scans packages with every registered handler.
type Engine struct {
	env      *core.Env
	registry *core.Registry
}

// New builds an Engine from cfg. Handlers must be registered first, usually
// by importing the all subpackage.
func New(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	s := settings{baseURLs: make(map[string]string)}
	for _, opt := range opts {
		opt(&s)
	}
	env, err := core.NewEnv(ctx, cfg, s.envOpts...)
	if err != nil {
		return nil, err
	}
	return &Engine{env: env, registry: core.NewRegistry(env, s.baseURLs)}, nil
}

// Close releases the response cache.
func (e *Engine) Close() error {
	return e.env.Close()
}

// Handlers returns the active handlers in dispatch order.
func (e *Engine) Handlers() []Handler {
	return e.registry.Handlers()
}

// Handler looks a handler up by name.
func (e *Engine) Handler(name string) (Handler, bool) {
	return e.registry.Handler(name)
}

// Scan returns the newer releases of pkg found from urls. Handler failures
// are logged and skipped; a ContractError or a cancelled context aborts.
func (e *Engine) Scan(ctx context.Context, pkg Package, opts Options, urls ...string) ([]Candidate, error) {
	return e.registry.Scan(ctx, pkg, opts, urls...)
}

// ScanIdentity scans a remote identity, such as a PyPI project name or a
// GitHub owner/repo, with the named handler.
func (e *Engine) ScanIdentity(ctx context.Context, pkg Package, handler, remote string, opts Options) ([]Candidate, error) {
	return e.registry.ScanIdentity(ctx, pkg, handler, remote, opts)
}

// ScanPURL scans the remote identity named by a package URL.
func (e *Engine) ScanPURL(ctx context.Context, pkg Package, purl string, opts Options) ([]Candidate, error) {
	return e.registry.ScanPURL(ctx, pkg, purl, opts)
}

// Job is one package of a ScanAll batch.
type Job struct {
	Package Package
	Options Options
	URLs    []string
}

// Result holds the outcome of one Job.
type Result struct {
	Package    Package
	Candidates []Candidate
	Err        error
}

const defaultConcurrency = 8

// ScanAll scans jobs in parallel, at most concurrency at a time (8 when
// concurrency < 1). Results come back in job order. A failed job records its
// error in its Result; only a ContractError stops the batch and is
// returned.
func (e *Engine) ScanAll(ctx context.Context, jobs []Job, concurrency int) ([]Result, error) {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for i, job := range jobs {
		g.Go(func() error {
			found, err := e.Scan(gctx, job.Package, job.Options, job.URLs...)
			mu.Lock()
			results[i] = Result{Package: job.Package, Candidates: found, Err: err}
			mu.Unlock()
			if core.IsContractError(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// SupportedHandlers returns the names of every registered handler.
func SupportedHandlers() []string {
	return core.SupportedHandlers()
}

// DefaultURL returns the default API base of a handler.
func DefaultURL(handler string) string {
	return core.DefaultURL(handler)
}

// BuildURLs returns a map of all non-empty URLs for a remote identity.
// Keys are "releases", "download", "project", and "purl".
func BuildURLs(urls URLBuilder, name, version string) map[string]string {
	return client.BuildURLs(urls, name, version)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:cargo/serde) and version PURLs (pkg:cargo/serde@1.0.0).
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}

// IsNotFound reports whether err means the remote package does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
