// Package server provides the exporter's HTTP server.
//
// It uses gorilla/mux for routing, logs every request through the logrus
// logger at debug level and recovers from panics in handlers.
//
// # Server Setup
//
//	srv := server.NewServer("0.0.0.0", "8000", log)
//	srv.Gatherer = registry
//	srv.Status = exp
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Endpoints
//
// Endpoints are registered via the endpoints subpackage:
//
//   - /metrics - Prometheus metrics
//   - / - Landing page
//   - /-/healthy - Liveness
//   - /-/ready - Readiness, after the first refresh
//   - /api/v1/status - Refresh status as JSON
package server
