// Package all imports every handler implementation.
//
// Import this package for its side effects to register all handlers:
//
//	import (
//		"github.com/git-pkgs/upstream"
//		_ "github.com/git-pkgs/upstream/all"
//	)
//
//	// Now every handler is available
//	handlers := upstream.SupportedHandlers()
//	// ["cargo", "cpan", "cran", "generic", "gitea", "github", ...]
package all

import (
	_ "github.com/git-pkgs/upstream/internal/cargo"
	_ "github.com/git-pkgs/upstream/internal/cpan"
	_ "github.com/git-pkgs/upstream/internal/cran"
	_ "github.com/git-pkgs/upstream/internal/generic"
	_ "github.com/git-pkgs/upstream/internal/gitea"
	_ "github.com/git-pkgs/upstream/internal/github"
	_ "github.com/git-pkgs/upstream/internal/gitlab"
	_ "github.com/git-pkgs/upstream/internal/golang"
	_ "github.com/git-pkgs/upstream/internal/hackage"
	_ "github.com/git-pkgs/upstream/internal/hex"
	_ "github.com/git-pkgs/upstream/internal/kde"
	_ "github.com/git-pkgs/upstream/internal/maven"
	_ "github.com/git-pkgs/upstream/internal/npm"
	_ "github.com/git-pkgs/upstream/internal/nuget"
	_ "github.com/git-pkgs/upstream/internal/packagist"
	_ "github.com/git-pkgs/upstream/internal/php"
	_ "github.com/git-pkgs/upstream/internal/pub"
	_ "github.com/git-pkgs/upstream/internal/pypi"
	_ "github.com/git-pkgs/upstream/internal/rubygems"
	_ "github.com/git-pkgs/upstream/internal/sourceforge"
)
