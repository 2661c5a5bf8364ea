// Package version provides the application version.
package version

// Version is the current application version, overridden at build time
// via -ldflags "-X github.com/lspdock/lspdock/internal/version.Version=...".
var Version = "0.2.0-dev"
