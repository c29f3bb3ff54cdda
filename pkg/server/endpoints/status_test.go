package endpoints

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/exporter"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/metrics"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/server"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/ubuntu"
)

type fakeStatus struct {
	ready  bool
	status exporter.Status
}

func (f *fakeStatus) Ready() bool { return f.ready }

func (f *fakeStatus) Status() exporter.Status {
	s := f.status
	s.Ready = f.ready
	return s
}

func newTestServer(t *testing.T, status *fakeStatus) (*server.Server, *ubuntu.Store) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := ubuntu.NewStore()
	reg := metrics.NewRegistry()
	reg.MustRegister(metrics.NewCollector(store))
	metrics.NewInstrumentation(reg)

	srv := server.NewServer("127.0.0.1", "0", log)
	srv.Gatherer = reg
	srv.Status = status
	RegisterAll(srv)
	return srv, store
}

func get(t *testing.T, srv *server.Server, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleLanding(t *testing.T) {
	status := &fakeStatus{
		ready: true,
		status: exporter.Status{
			Series: []string{"plucky", "noble"},
			Tasks:  []exporter.TaskStatus{{Name: "queues", Runs: 2, LastSuccess: time.Now()}},
		},
	}
	srv, _ := newTestServer(t, status)

	t.Run("returns HTML landing page", func(t *testing.T) {
		w := get(t, srv, "/", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), `<a href="/metrics">Metrics</a>`)
		assert.Contains(t, w.Body.String(), "Series: plucky, noble")
		assert.Contains(t, w.Body.String(), "<td>queues</td>")
	})

	t.Run("returns JSON when Accept header is application/json", func(t *testing.T) {
		w := get(t, srv, "/", http.Header{"Accept": {"application/json"}})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

		var resp LandingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Ready)
		assert.Equal(t, "/metrics", resp.Metrics)
	})

	t.Run("returns JSON with format query", func(t *testing.T) {
		w := get(t, srv, "/?format=json", nil)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	})

	t.Run("waiting page before the first refresh", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeStatus{})
		w := get(t, srv, "/", nil)
		assert.Contains(t, w.Body.String(), "Waiting for the first refresh")
	})
}

func TestHandleStatus(t *testing.T) {
	status := &fakeStatus{
		ready: true,
		status: exporter.Status{
			Series:      []string{"noble"},
			Packagesets: map[string]int{"noble": 12},
			Tasks: []exporter.TaskStatus{
				{Name: "builds", Runs: 3, Failures: 1, LastError: "timeout"},
			},
		},
	}
	srv, _ := newTestServer(t, status)

	w := get(t, srv, "/api/v1/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var got exporter.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Ready)
	assert.Equal(t, 12, got.Packagesets["noble"])
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, "timeout", got.Tasks[0].LastError)
	assert.NotContains(t, w.Body.String(), "last_success")
}

func TestHealthEndpoints(t *testing.T) {
	status := &fakeStatus{}
	srv, _ := newTestServer(t, status)

	w := get(t, srv, "/-/healthy", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, srv, "/-/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	status.ready = true
	w = get(t, srv, "/-/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, store := newTestServer(t, &fakeStatus{ready: true})
	store.Update(func(next *ubuntu.Snapshot) {
		next.PackagesetSources["noble"] = map[string][]string{"core": {"bash", "coreutils"}}
		next.QueueCounts["noble"] = map[launchpad.Pocket]map[launchpad.QueueStatus]int{
			launchpad.PocketProposed: {launchpad.QueueStatusNew: 5},
		}
	})

	w := get(t, srv, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `packageset_number_packages{packageset="core",series="noble"} 2`)
	assert.Contains(t, body, `queue_number_packages{pocket="Proposed",series="noble",status="New"} 5`)
	assert.Contains(t, body, `launchpad_exporter_build_info{version="dev"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStatus{})

	w := get(t, srv, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest("POST", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
