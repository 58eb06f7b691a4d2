// Package build holds build information, overridden at link time with
// -ldflags "-X github.com/G-Research/engine-dispatch/internal/dispatchctl/build.ReleaseVersion=...".
package build

import "runtime"

var (
	ReleaseVersion = "UNKNOWN_VERSION"
	GitCommit      = "UNKNOWN_GITCOMMIT"
	BuildTime      = "UNKNOWN_BUILDTIME"
	GoVersion      = runtime.Version()
)
