package core

import (
	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with handler-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the remote identity in the form the handler expects.
// For npm: "@babel/core", for github: "owner/repo".
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	return p.Namespace + "/" + p.Name
}

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:cargo/serde) and version PURLs (pkg:cargo/serde@1.0.0).
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

var purlHandlers = map[string]string{
	"cargo":    "cargo",
	"composer": "packagist",
	"cpan":     "cpan",
	"cran":     "cran",
	"gem":      "rubygems",
	"gitea":    "gitea",
	"github":   "github",
	"gitlab":   "gitlab",
	"golang":   "golang",
	"hackage":  "hackage",
	"hex":      "hex",
	"maven":    "maven",
	"npm":      "npm",
	"nuget":    "nuget",
	"pub":      "pub",
	"pypi":     "pypi",
}

// HandlerForPURLType maps a PURL type to the handler scanning it.
func HandlerForPURLType(purlType string) (string, bool) {
	h, ok := purlHandlers[purlType]
	return h, ok
}
