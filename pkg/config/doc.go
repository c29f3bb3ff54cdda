// Package config provides configuration management for the exporter.
//
// # Configuration Sources
//
// Each attribute is taken from the first of these that sets it:
//
//   - Command line flags
//   - Environment variables
//   - The config file, config.yml in /etc/launchpad-exporter or in
//     LAUNCHPAD_EXPORTER_CONFIG_PATH
//   - Defaults
//
// The source of every attribute is recorded and shown by
// "launchpad-exporter configuration show".
//
// # Key Configuration Options
//
//   - LAUNCHPAD_EXPORTER_SERIES: Series to report on (comma separated)
//   - LAUNCHPAD_EXPORTER_PACKAGESETS: Packagesets to report on
//   - LAUNCHPAD_EXPORTER_LOG_DIRECTORY: Directory for the rotated log file
//   - LAUNCHPAD_EXPORTER_DEBUG: Debug logging
//   - BIND_ADDRESS, PORT: HTTP listen address
package config
