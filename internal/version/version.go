// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

const name = "unit-batch-station"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info returns the build metadata as a map for the version endpoint.
func Info() map[string]string {
	return map[string]string{
		"name":      name,
		"version":   Version,
		"gitCommit": GitCommit,
		"buildTime": BuildTime,
		"goVersion": runtime.Version(),
	}
}

// String returns a one-line version banner.
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", name, Version, GitCommit, BuildTime)
}
