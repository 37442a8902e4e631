// Package main is the entry point for the kittynode CLI.
//
// This binary installs, inspects and removes node packages on the local
// Docker daemon. It delegates all functionality to the internal/cli
// package, which defines cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags
// by GoReleaser during the release process. During development, they
// default to "dev", "none", and "unknown" respectively.
package main

import (
	"github.com/kittynode/kittynode/internal/cli"
)

// version, commit, and date are set by GoReleaser at build time
// via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
