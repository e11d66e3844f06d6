// Package version carries build metadata injected with -ldflags:
//
//	go build -ldflags "-X github.com/paulproteus/for-each-meteor-app/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	Version   = "unknown"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("meteorspk %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
