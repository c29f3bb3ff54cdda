// Package launchpad is a small read-only client for the Launchpad web
// service (https://api.launchpad.net).
//
// Only the calls the exporter needs are implemented:
//
//   - listing and resolving distribution series
//   - listing packagesets of a series and their source packages
//   - counting uploads in the upload queues
//   - listing failed builds
//
// All requests are anonymous. Requests share one rate limiter and are
// retried with exponential back-off on network errors, 429 and 5xx
// responses.
//
// # Caching
//
// CachedClient keeps series lookups in an LRU cache, and packagesets and
// packageset contents in expiring LRU caches:
//
//	client := launchpad.NewClient(launchpad.WithLogger(log))
//	cached, err := launchpad.NewCachedClient(client, "ubuntu")
//	series, err := cached.GetSeries(ctx, "noble")
//	sets, err := cached.Packagesets(ctx, series)
package launchpad
