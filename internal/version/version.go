// Package version holds build metadata injected via -ldflags.
package version

// Build metadata. Overridden at link time:
//
//	-X github.com/kailas-cloud/retriever/internal/version.Version=v1.2.3
var (
	Version = "dev"
	Commit  = "unknown"
)
