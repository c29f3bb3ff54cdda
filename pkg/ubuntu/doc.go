// Package ubuntu turns Launchpad data about the Ubuntu archive into
// snapshots: packageset contents, upload queue lengths and failed builds per
// packageset.
package ubuntu
