// Package version carries build metadata stamped in with -ldflags.
package version

import "fmt"

var (
	// Version is the release version of flowcount.
	Version = "dev"
	// GitSHA is the git commit SHA.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the metadata on one line.
func String() string {
	return fmt.Sprintf("flowcount %s (%s, built %s)", Version, GitSHA, BuildTime)
}
