package core

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/git-pkgs/upstream/client"
	"github.com/git-pkgs/upstream/fetch"
	"github.com/git-pkgs/upstream/internal/blacklist"
	"github.com/git-pkgs/upstream/internal/cache"
	"github.com/git-pkgs/upstream/internal/config"
	"github.com/git-pkgs/upstream/internal/version"
)

// Env is everything a handler needs, built once per process.
type Env struct {
	Config  config.Config
	Client  *Client
	Fetcher *fetch.Fetcher
	Model   *version.Model
	Mangler *version.Mangler
	Lists   *blacklist.Lists
	Mirrors *fetch.Mirrors

	closer io.Closer
}

// EnvOption configures NewEnv.
type EnvOption func(*envSettings)

type envSettings struct {
	fetchOpts []fetch.Option
	native    version.NativeComparator
	nativeSet bool
}

// WithFetchOptions appends options to the fetcher NewEnv builds.
func WithFetchOptions(opts ...fetch.Option) EnvOption {
	return func(s *envSettings) {
		s.fetchOpts = append(s.fetchOpts, opts...)
	}
}

// WithNativeComparator replaces the ecosystem-native version comparator.
// nil leaves only the fallback ordering.
func WithNativeComparator(n version.NativeComparator) EnvOption {
	return func(s *envSettings) {
		s.native = n
		s.nativeSet = true
	}
}

// NewEnv wires the static tables, the version model and the fetch layer
// according to cfg.
func NewEnv(ctx context.Context, cfg config.Config, opts ...EnvOption) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ContractError{Handler: "config", Err: err}
	}
	var settings envSettings
	for _, opt := range opts {
		opt(&settings)
	}

	lists := blacklist.Default()
	if cfg.BlacklistFile != "" {
		l, err := blacklist.Load(cfg.BlacklistFile)
		if err != nil {
			return nil, err
		}
		lists = l
	}

	mirrors := fetch.DefaultMirrors()
	if cfg.MirrorsFile != "" {
		m, err := fetch.LoadMirrors(cfg.MirrorsFile)
		if err != nil {
			return nil, err
		}
		mirrors = m
	}

	modelOpts := []version.ModelOption{
		version.WithBlacklist(lists.Versions),
		version.WithPreRelease(cfg.IgnorePreRelease, cfg.IgnorePreReleaseIfStable),
	}
	if settings.nativeSet {
		modelOpts = append(modelOpts, version.WithNative(settings.native))
	}

	mangler := version.NewMangler()
	mangler.RegisterURLRule("mirror", mirrors.Unresolve)

	httpClient := fetch.NewHTTPClient()
	fetchOpts := []fetch.Option{
		fetch.WithHTTPClient(httpClient),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithTimeouts(cfg.Timeout, cfg.SlowTimeout),
		fetch.WithAuthFunc(authFunc(cfg)),
	}
	if !cfg.SkipRobotsTxt {
		fetchOpts = append(fetchOpts, fetch.WithRobots(fetch.NewRobots(cfg.UserAgent,
			fetch.WithRobotsClient(httpClient),
			fetch.WithRobotsTimeout(cfg.RobotsTimeout),
			fetch.WithExempt(lists.RobotsExemptHost),
		)))
	}

	var closer io.Closer
	if c, err := openCache(ctx, cfg); err != nil {
		return nil, err
	} else if c != nil {
		responses := cache.NewResponses(c, cfg.CacheTTL)
		fetchOpts = append(fetchOpts, fetch.WithCache(responses))
		closer = responses
	}

	fetcher := fetch.NewFetcher(append(fetchOpts, settings.fetchOpts...)...)

	return &Env{
		Config:  cfg,
		Client:  client.NewClient(client.WithDoer(fetcher)),
		Fetcher: fetcher,
		Model:   version.NewModel(modelOpts...),
		Mangler: mangler,
		Lists:   lists,
		Mirrors: mirrors,
		closer:  closer,
	}, nil
}

// DefaultEnv returns an Env built from config.Default().
func DefaultEnv() *Env {
	env, err := NewEnv(context.Background(), config.Default())
	if err != nil {
		panic(fmt.Sprintf("core: default env: %v", err))
	}
	return env
}

// Close releases the response cache.
func (e *Env) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

func openCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch {
	case cfg.CacheRedis != "":
		return cache.NewRedisCache(ctx, cfg.CacheRedis)
	case cfg.CacheDir != "":
		return cache.NewFileCache(cfg.CacheDir)
	default:
		return nil, nil
	}
}

func authFunc(cfg config.Config) func(string) (string, string) {
	return func(rawURL string) (string, string) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", ""
		}
		host := u.Hostname()
		switch {
		case cfg.GithubToken != "" && host == "api.github.com":
			return "Authorization", "Bearer " + cfg.GithubToken
		case cfg.GitlabToken != "" && slices.Contains(cfg.GitlabInstances, host):
			return "PRIVATE-TOKEN", cfg.GitlabToken
		}
		return "", ""
	}
}

// ResolveMirror resolves a mirror:// URL, logging a warning and returning
// "" when the mirror is unknown or malformed.
func (e *Env) ResolveMirror(ctx context.Context, uri string) string {
	resolved, err := e.Mirrors.Resolve(uri)
	if err != nil {
		Logger(ctx).Warn("cannot resolve mirror", "url", uri, "err", err)
		return ""
	}
	return resolved
}

// Candidates is the shared tail of every API handler: mangle each release
// version, drop filtered ones, mangle and join the URLs, and tag the result
// with the handler's name and confidence. cmp overrides the comparator.
func (e *Env) Candidates(ctx context.Context, pkg Package, h Handler, releases []Release, rules version.Rules, cmp version.CompareFunc) []Candidate {
	logger := Logger(ctx)
	var out []Candidate
	for _, r := range releases {
		if len(r.URLs) == 0 {
			continue
		}
		pv := e.Mangler.Version(r.Version, rules.Version)
		if pv == "" || e.Model.Filtered(pkg.CP(), pkg.Version, pv, cmp) {
			continue
		}
		urls := make([]string, 0, len(r.URLs))
		for _, u := range r.URLs {
			urls = append(urls, e.Mangler.URL(u, rules.URL))
		}
		logger.Debug("found", "handler", h.Name(), "version", pv)
		out = append(out, Candidate{
			URL:        strings.Join(urls, " "),
			Version:    pv,
			Handler:    h.Name(),
			Confidence: h.Confidence(),
		})
	}
	return out
}
