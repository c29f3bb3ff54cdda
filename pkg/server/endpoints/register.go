package endpoints

import (
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/server"
)

// RegisterAll registers all endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterMetricsEndpoint(srv)
	RegisterHealthEndpoints(srv)
	RegisterStatusEndpoints(srv)
}
