// Package version holds the build version of the exporter.
package version

// Version is overridden at build time with
// -ldflags "-X github.com/iainlane/prometheus-launchpad-exporter/pkg/version.Version=...".
var Version = "dev"

// UserAgent is sent with every Launchpad request.
func UserAgent() string {
	return "prometheus-launchpad-exporter/" + Version
}
