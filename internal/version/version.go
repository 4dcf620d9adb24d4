package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line version summary.
func String() string {
	return fmt.Sprintf("f1-race-replay %s (%s, built %s)", Version, GitSHA, BuildTime)
}
