package version

import "fmt"

var (
	// Version is the release tag, set with -ldflags "-X .../version.Version=...".
	Version = "0.3.0"
	// Commit is the short git SHA of the build.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns the release tag only.
func Short() string {
	return Version
}

// Full returns the release tag with commit and build time.
func Full() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime)
}
