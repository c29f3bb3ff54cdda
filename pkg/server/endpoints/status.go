package endpoints

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/exporter"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/server"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/version"
)

// LandingResponse is the JSON form of the landing page
type LandingResponse struct {
	Version string `json:"version"`
	Ready   bool   `json:"ready"`
	Metrics string `json:"metrics"`
}

// RegisterStatusEndpoints registers the landing page and the status API
func RegisterStatusEndpoints(s *server.Server) {
	// GET / - Landing page, HTML or JSON
	s.Router.HandleFunc("/", handleLanding(s.Status)).Methods("GET")

	// GET /api/v1/status - Snapshot and refresh status
	s.Router.HandleFunc("/api/v1/status", handleStatus(s.Status)).Methods("GET")
}

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Launchpad Exporter</title>
  </head>
  <body>
    <h1>Launchpad Exporter</h1>
    <p>Version {{.Version}}</p>
    <ul>
      <li><a href="` + MetricsPath + `">Metrics</a></li>
      <li><a href="/api/v1/status">Status</a></li>
    </ul>
    {{- if .Status.Ready}}
    <p>Series: {{range $i, $s := .Status.Series}}{{if $i}}, {{end}}{{$s}}{{end}}</p>
    <table>
      <tr><th>Task</th><th>Runs</th><th>Failures</th><th>Last success</th><th>Last error</th></tr>
      {{- range .Status.Tasks}}
      <tr><td>{{.Name}}</td><td>{{.Runs}}</td><td>{{.Failures}}</td><td>{{.LastSuccess.Format "2006-01-02T15:04:05Z07:00"}}</td><td>{{.LastError}}</td></tr>
      {{- end}}
    </table>
    {{- else}}
    <p>Waiting for the first refresh from Launchpad.</p>
    {{- end}}
  </body>
</html>
`))

func handleLanding(status server.StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Check if JSON is requested via Accept header or format query param
		accept := r.Header.Get("Accept")
		format := r.URL.Query().Get("format")
		if format == "json" || strings.Contains(accept, "application/json") {
			respondWithJSON(w, http.StatusOK, LandingResponse{
				Version: version.Version,
				Ready:   status.Ready(),
				Metrics: MetricsPath,
			})
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = landingTemplate.Execute(w, struct {
			Version string
			Status  exporter.Status
		}{version.Version, status.Status()})
	}
}

func handleStatus(status server.StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, status.Status())
	}
}
