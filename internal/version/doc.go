// Package version exposes build metadata for the project.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Full renders them as whitespace-separated name/value tokens,
// the same shape release-keeper expects from the tools it installs.
package version
