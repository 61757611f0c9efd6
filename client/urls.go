package client

import "fmt"

// URLBuilder constructs the endpoints a handler talks to.
type URLBuilder interface {
	Releases(name string) string
	Download(name, version string) string
	Project(name string) string
	PURL(name, version string) string
}

// BaseURLs provides a default URLBuilder implementation.
type BaseURLs struct {
	ReleasesFn func(name string) string
	DownloadFn func(name, version string) string
	ProjectFn  func(name string) string
	PURLFn     func(name, version string) string
}

func (b *BaseURLs) Releases(name string) string {
	if b.ReleasesFn != nil {
		return b.ReleasesFn(name)
	}
	return ""
}

func (b *BaseURLs) Download(name, version string) string {
	if b.DownloadFn != nil {
		return b.DownloadFn(name, version)
	}
	return ""
}

func (b *BaseURLs) Project(name string) string {
	if b.ProjectFn != nil {
		return b.ProjectFn(name)
	}
	return ""
}

func (b *BaseURLs) PURL(name, version string) string {
	if b.PURLFn != nil {
		return b.PURLFn(name, version)
	}
	if version == "" {
		return fmt.Sprintf("pkg:%s/%s", "generic", name)
	}
	return fmt.Sprintf("pkg:%s/%s@%s", "generic", name, version)
}

// BuildURLs returns a map of all non-empty URLs for a package.
// Keys are "releases", "download", "project", and "purl".
func BuildURLs(urls URLBuilder, name, version string) map[string]string {
	result := make(map[string]string)
	if v := urls.Releases(name); v != "" {
		result["releases"] = v
	}
	if version != "" {
		if v := urls.Download(name, version); v != "" {
			result["download"] = v
		}
	}
	if v := urls.Project(name); v != "" {
		result["project"] = v
	}
	if v := urls.PURL(name, version); v != "" {
		result["purl"] = v
	}
	return result
}
