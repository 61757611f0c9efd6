// Package php scans the PEAR and PECL channels, which share one REST
// layout.
package php

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/upstream/internal/core"
)

const (
	PEARURL = "https://pear.php.net"
	PECLURL = "https://pecl.php.net"
)

func init() {
	core.Register("pear", PEARURL, func(baseURL string, env *core.Env) core.Handler {
		return New("pear", baseURL, env)
	})
	core.Register("pecl", PECLURL, func(baseURL string, env *core.Env) core.Handler {
		return New("pecl", baseURL, env)
	})
}

// Handler scans one channel.
type Handler struct {
	core.Base
	channel string
	baseURL string
	env     *core.Env
	urls    *URLs
	re      *regexp.Regexp
}

// New returns a handler for channel ("pear" or "pecl").
func New(channel, baseURL string, env *core.Env) *Handler {
	if baseURL == "" {
		baseURL = "https://" + channel + ".php.net"
	}
	h := &Handler{
		Base:    core.Base{HandlerName: channel, HandlerConfidence: 100, HandlerPriority: 90},
		channel: channel,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		env:     env,
		re:      regexp.MustCompile(`^https?://` + channel + `\.php\.net/get/(.+?)-\d[^/]*\.tgz$`),
	}
	h.urls = &URLs{baseURL: h.baseURL, channel: channel}
	return h
}

func (h *Handler) URLs() core.URLBuilder {
	return h.urls
}

func (h *Handler) CanHandle(_ core.Package, url string) bool {
	return strings.HasPrefix(url, "http://"+h.channel+".php.net/get/") ||
		strings.HasPrefix(url, "https://"+h.channel+".php.net/get/")
}

func (h *Handler) Scan(ctx context.Context, pkg core.Package, url string, opts core.Options) ([]core.Candidate, error) {
	return h.ScanIdentity(ctx, pkg, core.RemoteName(h.re, url, pkg), opts)
}

type allReleases struct {
	Package  string `xml:"p"`
	Channel  string `xml:"c"`
	Releases []struct {
		Version   string `xml:"v"`
		Stability string `xml:"s"`
	} `xml:"r"`
}

func (h *Handler) ScanIdentity(ctx context.Context, pkg core.Package, remote string, opts core.Options) ([]core.Candidate, error) {
	url := h.urls.Releases(remote)
	core.Logger(ctx).Info("using php channel rest api", "channel", h.channel, "package", remote, "url", url)

	var resp allReleases
	if err := h.env.Client.GetXML(ctx, url, &resp); err != nil {
		return nil, core.WrapNotFound(h.channel, remote, err)
	}

	releases := make([]core.Release, 0, len(resp.Releases))
	for _, r := range resp.Releases {
		releases = append(releases, core.Release{
			Version: r.Version,
			URLs:    []string{h.urls.Download(remote, r.Version)},
		})
	}
	return h.env.Candidates(ctx, pkg, h, releases, opts.Rules, nil), nil
}

type URLs struct {
	baseURL string
	channel string
}

func (u *URLs) Releases(name string) string {
	return fmt.Sprintf("%s/rest/r/%s/allreleases.xml", u.baseURL, strings.ToLower(name))
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s/get/%s-%s.tgz", u.baseURL, name, version)
}

func (u *URLs) Project(name string) string {
	return fmt.Sprintf("%s/package/%s", u.baseURL, name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:%s/%s@%s", u.channel, name, version)
	}
	return fmt.Sprintf("pkg:%s/%s", u.channel, name)
}
