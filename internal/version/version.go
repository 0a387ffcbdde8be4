// Package version carries the build version, set with
// -ldflags "-X github.com/bnema/destiny-cli/internal/version.Version=...".
package version

var Version = "dev"
