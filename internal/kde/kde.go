// Package kde scans download.kde.org through the generic scanner.
package kde

import (
	"context"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
	"github.com/git-pkgs/upstream/internal/generic"
)

const (
	name     = "kde"
	unstable = "mirror://kde/unstable/"
	stable   = "mirror://kde/stable/"
)

func init() {
	core.Register(name, "", func(_ string, env *core.Env) core.Handler {
		return New(env)
	})
}

type Handler struct {
	core.Base
	generic *generic.Scanner
}

func New(env *core.Env) *Handler {
	return &Handler{
		Base:    core.Base{HandlerName: name, HandlerConfidence: 90, HandlerPriority: 90},
		generic: generic.New(env),
	}
}

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return strings.HasPrefix(url, "mirror://kde/")
}

// Scan crawls the listing for url, and for the stable tree as well when url
// points at unstable/, since releases move there once they are final.
// Brute force runs only when no listing turned anything up.
func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	urls := []string{url}
	if strings.HasPrefix(url, unstable) {
		urls = append(urls, stable+strings.TrimPrefix(url, unstable))
	}

	found, err := h.each(ctx, pkg, urls, opts, h.generic.ScanListing)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		if found, err = h.each(ctx, pkg, urls, opts, h.generic.BruteForce); err != nil {
			return nil, err
		}
	}
	return h.clean(found), nil
}

type scanFunc func(context.Context, core.Package, string, core.Options) ([]core.Candidate, error)

func (h *Handler) each(ctx context.Context, pkg core.Package, urls []string, opts core.Options, scan scanFunc) ([]core.Candidate, error) {
	var out []core.Candidate
	for _, u := range urls {
		found, err := scan(ctx, pkg, u, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// clean drops checksum files picked up from listings and retags the rest
// with this handler's name. Confidence stays as the scanner set it.
func (h *Handler) clean(found []core.Candidate) []core.Candidate {
	out := found[:0]
	for _, c := range found {
		if c.Version == "5SUMS" {
			continue
		}
		c.Handler = name
		out = append(out, c)
	}
	return out
}
