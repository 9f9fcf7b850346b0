// Package version holds build metadata injected via ldflags.
package version

// Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
