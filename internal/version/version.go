// Package version holds build metadata, overridden at link time:
//
//	go build -ldflags "-X github.com/aristath/papertrader/internal/version.Version=1.2.0"
package version

// Version is the release tag of the running binary
var Version = "dev"
