package endpoints

import (
	"net/http"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/server"
)

// RegisterHealthEndpoints registers the liveness and readiness probes
func RegisterHealthEndpoints(s *server.Server) {
	s.Router.HandleFunc("/-/healthy", handleHealthy()).Methods("GET", "HEAD")
	s.Router.HandleFunc("/-/ready", handleReady(s.Status)).Methods("GET", "HEAD")
}

func handleHealthy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Healthy.\n"))
	}
}

// handleReady answers 503 until every refresh task has succeeded once
func handleReady(status server.StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !status.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Waiting for the first refresh.\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready.\n"))
	}
}
