// Package version holds build information for swctl.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is set during build time via ldflags.
	Version = "dev"

	// BuildTime is set during build time via ldflags.
	BuildTime = "unknown"

	// Commit is set during build time via ldflags.
	Commit = "unknown"
)

func shortCommit() string {
	if len(Commit) > 8 {
		return Commit[:8]
	}
	return Commit
}

// Info returns version information as a formatted string.
func Info() string {
	return fmt.Sprintf("swctl %s (%s) - %s %s/%s",
		Version,
		shortCommit(),
		BuildTime,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// UserAgent is sent with every request to the backend.
func UserAgent() string {
	return fmt.Sprintf("swctl/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

// Map returns version information as a map.
func Map() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    Commit,
		"buildTime": BuildTime,
		"goVersion": runtime.Version(),
		"os":        runtime.GOOS,
		"arch":      runtime.GOARCH,
	}
}
