package core

import (
	"github.com/git-pkgs/upstream/client"
)

// Type aliases so handlers only import core.
type (
	Client     = client.Client
	URLBuilder = client.URLBuilder
	BaseURLs   = client.BaseURLs
)

var (
	DefaultClient = client.DefaultClient
	NewClient     = client.NewClient
	BuildURLs     = client.BuildURLs
)
