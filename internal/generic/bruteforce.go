package generic

import (
	"context"
	"errors"
	neturl "net/url"
	"path"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/template"
	"github.com/git-pkgs/upstream/internal/version"
)

// MaxProbes bounds the HEAD requests a single brute force search may issue.
const MaxProbes = 1000

var errBudget = errors.New("probe budget exhausted")

// BruteForce guesses newer release URLs by incrementing the components of
// the package version and probing each guess with a HEAD request.
func (s *Scanner) BruteForce(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	logger := core.Logger(ctx)
	cfg := s.env.Config
	if cfg.BruteForce == 0 {
		return nil, nil
	}
	if rule, ok := s.env.Lists.BruteForceBlacklisted(pkg.CP(), url); ok {
		logger.Info("brute force blacklisted", "url", url, "rule", rule)
		return nil, nil
	}

	t, ok := s.prepare(ctx, pkg, url)
	if !ok {
		return nil, nil
	}
	if rule, ok := s.env.Lists.BruteForceBlacklisted(pkg.CP(), t.resolved); ok {
		logger.Info("brute force blacklisted", "url", t.resolved, "rule", rule)
		return nil, nil
	}

	components := version.Split(t.version)
	levels := bruteLevels(components, cfg.BruteForce)
	if len(levels) == 0 {
		return nil, nil
	}
	if !cfg.BruteForceRecursive {
		levels = levels[:1]
	}

	logger.Info("brute forcing", "url", t.tmpl)
	b := &search{
		s:         s,
		pkg:       pkg,
		target:    t,
		opts:      opts,
		watermark: cfg.BruteForceFalseWatermark,
		recursive: cfg.BruteForceRecursive,
		levels:    levels,
		budget:    MaxProbes,
		done:      map[string]bool{t.version: true},
	}
	return b.run(ctx, components)
}

// run searches every level starting from the package version. A search
// that runs out of budget is treated as a host answering every guess, and
// its hits are dropped.
func (b *search) run(ctx context.Context, from version.Components) ([]core.Candidate, error) {
	for _, level := range b.levels {
		if err := b.level(ctx, from, level); err != nil {
			if errors.Is(err, errBudget) {
				core.Logger(ctx).Warn("brute force stopped, dropping hits", "url", b.target.tmpl, "probes", b.probes, "hits", len(b.found))
				return nil, nil
			}
			return b.found, err
		}
	}
	return b.found, nil
}

// bruteLevels returns the indexes of the numeric components, least
// significant first, at most depth of them.
func bruteLevels(cs version.Components, depth int) []int {
	var out []int
	for i := len(cs) - 1; i >= 0 && len(out) < depth; i-- {
		if cs[i].Kind == version.Numeric {
			out = append(out, i)
		}
	}
	return out
}

type search struct {
	s         *Scanner
	pkg       core.Package
	target    target
	opts      core.Options
	watermark int
	recursive bool
	levels    []int
	budget    int

	done   map[string]bool
	probes int
	found  []core.Candidate
}

// level keeps bumping the component at level until watermark consecutive
// guesses miss. In recursive mode every hit is explored again at the less
// significant levels.
func (b *search) level(ctx context.Context, from version.Components, level int) error {
	cur := from
	for misses := 0; misses < b.watermark; {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := cur.Increment(level)
		if err != nil {
			return &core.ContractError{Handler: Name, Err: err}
		}
		cur = next

		v := cur.String()
		if b.done[v] {
			misses++
			continue
		}
		b.done[v] = true

		pv := b.s.env.Mangler.Version(v, b.opts.VersionRules())
		if pv == "" || b.s.env.Model.Filtered(b.pkg.CP(), b.pkg.Version, pv, nil) {
			misses++
			continue
		}

		if b.probes >= b.budget {
			return errBudget
		}
		b.probes++
		u := template.ToURL(b.target.tmpl, v)
		if !b.s.probe(ctx, u) {
			if err := ctx.Err(); err != nil {
				return err
			}
			misses++
			continue
		}

		misses = 0
		core.Logger(ctx).Debug("found", "handler", Name, "version", pv, "url", u)
		b.found = append(b.found, b.s.candidate(u, pv, BruteForceConfidence, b.opts))

		if !b.recursive {
			continue
		}
		for _, lower := range b.levels {
			if lower <= level {
				continue
			}
			if err := b.level(ctx, cur, lower); err != nil {
				return err
			}
		}
	}
	return nil
}

// probe reports whether u looks like a real release file.
func (s *Scanner) probe(ctx context.Context, u string) bool {
	logger := core.Logger(ctx)
	resp, err := s.env.Client.Probe(ctx, u)
	if err != nil {
		logger.Debug("probe failed", "url", u, "err", err)
		return false
	}
	if !resp.OK() || resp.ContentLength == 0 {
		return false
	}
	ct := strings.ToLower(resp.ContentType)
	if strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/x-httpd-php") {
		return false
	}
	if resp.URL != "" && resp.URL != u && !sameBasename(u, resp.URL) {
		logger.Debug("probe redirected elsewhere", "url", u, "location", resp.URL)
		return false
	}
	return true
}

func sameBasename(a, b string) bool {
	ua, err := neturl.Parse(a)
	if err != nil {
		return false
	}
	ub, err := neturl.Parse(b)
	if err != nil {
		return false
	}
	return path.Base(ua.Path) == path.Base(ub.Path)
}
