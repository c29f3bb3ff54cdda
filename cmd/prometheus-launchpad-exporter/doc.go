// Command prometheus-launchpad-exporter exports Launchpad packageset, build
// and upload queue metrics to Prometheus.
//
// The exporter polls the Launchpad web service for a distribution, Ubuntu by
// default, and serves on port 8000:
//
//   - /metrics: packageset_number_packages, packageset_failed_builds,
//     queue_number_packages and the exporter's own metrics
//   - /: a landing page (JSON with Accept: application/json)
//   - /-/healthy and /-/ready: liveness and readiness
//   - /api/v1/status: refresh status of every task
//
// # Quick Start
//
//	# Report on the current series
//	prometheus-launchpad-exporter --debug
//
//	# Report on two packagesets of one series
//	prometheus-launchpad-exporter --series noble --packageset core --packageset desktop
//
//	# Check the effective configuration
//	prometheus-launchpad-exporter configuration show
//
//	# Wait for the first refresh to complete
//	prometheus-launchpad-exporter wait
//
// # Environment Variables
//
//   - LAUNCHPAD_EXPORTER_CONFIG_PATH: directory holding config.yml
//   - LAUNCHPAD_EXPORTER_SERIES, LAUNCHPAD_EXPORTER_PACKAGESETS: comma-separated filters
//   - LAUNCHPAD_EXPORTER_DEBUG: log at debug level
//   - BIND_ADDRESS, PORT: listen address (default 0.0.0.0:8000)
package main
