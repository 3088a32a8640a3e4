package version

import (
	"fmt"
	"runtime"
)

// Name is the program name used as the first segment of the version line.
const Name = "release-keeper"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the version line in the "name/version platform/..." token format
// that release-keeper itself parses when querying installed tools.
func Full() string {
	return fmt.Sprintf("%s/%s go/%s %s/%s commit/%s built/%s",
		Name, Version, runtime.Version(), runtime.GOOS, runtime.GOARCH, Commit, BuildTime)
}
