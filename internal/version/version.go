// Package version holds the application version.
package version

// Version is the current application version. Overridden at build time via
// -ldflags "-X ccswitch/internal/version.Version=...".
var Version = "1.0.0"
