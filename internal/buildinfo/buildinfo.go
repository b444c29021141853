// Package buildinfo holds build-time version metadata.
package buildinfo

// Version and Commit are injected at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)
