// Package version holds build metadata injected at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/sitebuild/internal/version.Version=v1.2.0"
package version

import "fmt"

// Version is the release version of the binary.
var Version = "dev"

// Build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for --version output.
func String() string {
	return fmt.Sprintf("sitebuild %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
