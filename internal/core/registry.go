package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler discovers upstream releases for one kind of source.
type Handler interface {
	// Name is the unique handler name, as used by handlers-exclude.
	Name() string

	// Confidence is the 0-100 score attached to every candidate.
	Confidence() int

	// Priority orders handlers at dispatch, highest first.
	Priority() int

	// CanHandle reports whether url is a source this handler understands.
	CanHandle(pkg Package, url string) bool

	// Scan returns the newer releases found from url.
	Scan(ctx context.Context, pkg Package, url string, opts Options) ([]Candidate, error)
}

// IdentityScanner is implemented by handlers that can scan a known remote
// identity (a PyPI project name, a GitHub owner/repo) without a source URL.
type IdentityScanner interface {
	ScanIdentity(ctx context.Context, pkg Package, remote string, opts Options) ([]Candidate, error)
}

// URLProvider is implemented by handlers that expose their endpoints.
type URLProvider interface {
	URLs() URLBuilder
}

// Factory creates a handler for a given base URL.
type Factory func(baseURL string, env *Env) Handler

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a handler factory. defaultURL is the handler's API base;
// handlers that are not bound to one service pass "".
func Register(name string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
	defaults[name] = defaultURL
}

// New creates a single handler by name. If baseURL is empty, the default
// URL is used.
func New(name string, baseURL string, env *Env) (Handler, error) {
	mu.RLock()
	factory, ok := factories[name]
	defaultURL := defaults[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown handler: %s", name)
	}
	if baseURL == "" {
		baseURL = defaultURL
	}
	if env == nil {
		env = DefaultEnv()
	}
	return factory(baseURL, env), nil
}

// SupportedHandlers returns all registered handler names, sorted.
func SupportedHandlers() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultURL returns the default base URL for a handler.
func DefaultURL(name string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[name]
}

// Registry is an ordered set of instantiated handlers sharing one Env.
type Registry struct {
	env      *Env
	handlers []Handler
}

// NewRegistry instantiates every registered handler, ordered by descending
// priority then name. baseURLs overrides default URLs per handler name.
func NewRegistry(env *Env, baseURLs map[string]string) *Registry {
	if env == nil {
		env = DefaultEnv()
	}
	r := &Registry{env: env}
	for _, name := range SupportedHandlers() {
		h, err := New(name, baseURLs[name], env)
		if err != nil {
			continue
		}
		r.handlers = append(r.handlers, h)
	}
	sortHandlers(r.handlers)
	return r
}

// NewRegistryWith builds a registry from explicit handlers.
func NewRegistryWith(env *Env, handlers ...Handler) *Registry {
	if env == nil {
		env = DefaultEnv()
	}
	r := &Registry{env: env, handlers: append([]Handler(nil), handlers...)}
	sortHandlers(r.handlers)
	return r
}

func sortHandlers(hs []Handler) {
	sort.SliceStable(hs, func(i, j int) bool {
		if hs[i].Priority() != hs[j].Priority() {
			return hs[i].Priority() > hs[j].Priority()
		}
		return hs[i].Name() < hs[j].Name()
	})
}

// Env returns the shared environment.
func (r *Registry) Env() *Env {
	return r.env
}

// Handlers returns the handlers in dispatch order.
func (r *Registry) Handlers() []Handler {
	return append([]Handler(nil), r.handlers...)
}

// Handler looks a handler up by name.
func (r *Registry) Handler(name string) (Handler, bool) {
	for _, h := range r.handlers {
		if h.Name() == name {
			return h, true
		}
	}
	return nil, false
}

// Scan runs every capable, non-excluded handler against every url and
// concatenates their candidates. Handler failures are logged and skipped;
// only a ContractError or a cancelled context aborts the scan.
func (r *Registry) Scan(ctx context.Context, pkg Package, opts Options, urls ...string) ([]Candidate, error) {
	logger := Logger(ctx).With("package", pkg.CPV())

	if r.env.Lists.PackageBlacklisted(pkg.CP()) {
		logger.Info("package is blacklisted, skipping")
		return nil, nil
	}

	var out []Candidate
	for _, u := range urls {
		for _, h := range r.handlers {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			if r.env.Config.Excluded(h.Name()) || !h.CanHandle(pkg, u) {
				continue
			}

			logger.Debug("scanning", "handler", h.Name(), "url", u)
			found, err := h.Scan(ctx, pkg, u, opts)
			if err != nil {
				if handled := r.handleError(ctx, h.Name(), err); handled != nil {
					return out, handled
				}
				continue
			}
			out = append(out, found...)
		}
	}
	return out, nil
}

// ScanIdentity scans a known remote identity with the named handler.
func (r *Registry) ScanIdentity(ctx context.Context, pkg Package, handler, remote string, opts Options) ([]Candidate, error) {
	h, ok := r.Handler(handler)
	if !ok {
		return nil, fmt.Errorf("unknown handler: %s", handler)
	}
	if r.env.Config.Excluded(handler) {
		return nil, nil
	}
	is, ok := h.(IdentityScanner)
	if !ok {
		return nil, fmt.Errorf("handler %s cannot scan by identity", handler)
	}
	if r.env.Lists.PackageBlacklisted(pkg.CP()) {
		return nil, nil
	}

	found, err := is.ScanIdentity(ctx, pkg, remote, opts)
	if err != nil {
		if handled := r.handleError(ctx, handler, err); handled != nil {
			return nil, handled
		}
		return nil, nil
	}
	return found, nil
}

// ScanPURL scans the remote identity named by a package URL such as
// pkg:pypi/requests or pkg:github/owner/repo.
func (r *Registry) ScanPURL(ctx context.Context, pkg Package, purl string, opts Options) ([]Candidate, error) {
	p, err := ParsePURL(purl)
	if err != nil {
		return nil, err
	}
	handler, ok := HandlerForPURLType(p.Type)
	if !ok {
		return nil, fmt.Errorf("no handler for purl type %q", p.Type)
	}
	return r.ScanIdentity(ctx, pkg, handler, p.FullName(), opts)
}

func (r *Registry) handleError(ctx context.Context, handler string, err error) error {
	if IsContractError(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	Logger(ctx).Warn("handler failed", "handler", handler, "err", err)
	return nil
}
