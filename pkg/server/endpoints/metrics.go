package endpoints

import (
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/server"
)

// MetricsPath is where Prometheus scrapes the exporter
const MetricsPath = "/metrics"

// RegisterMetricsEndpoint serves the server's gatherer in the Prometheus
// exposition formats
func RegisterMetricsEndpoint(s *server.Server) {
	handler := promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{
		ErrorLog:            s.Log,
		ErrorHandling:       promhttp.ContinueOnError,
		MaxRequestsInFlight: 4,
		Timeout:             30 * time.Second,
	})
	s.Router.Handle(MetricsPath, handler).Methods("GET")
}
