package benchmark

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/exporter"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/metrics"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/server"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/server/endpoints"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/ubuntu"
)

type readyStatus struct{ store *ubuntu.Store }

func (readyStatus) Ready() bool { return true }

func (r readyStatus) Status() exporter.Status {
	return exporter.Status{Ready: true, Series: r.store.Load().Series}
}

// archiveSized fills a store with roughly as many label sets as the Ubuntu
// archive produces.
func archiveSized() *ubuntu.Store {
	store := ubuntu.NewStore()
	store.Update(func(next *ubuntu.Snapshot) {
		for s := 0; s < 5; s++ {
			series := fmt.Sprintf("series%d", s)
			next.Series = append(next.Series, series)

			sets := map[string][]string{}
			builds := ubuntu.BuildCounts{}
			for p := 0; p < 60; p++ {
				name := fmt.Sprintf("packageset%d", p)
				sources := make([]string, 0, 200)
				for i := 0; i < 200; i++ {
					sources = append(sources, fmt.Sprintf("source%d", i))
				}
				sets[name] = sources
				builds[name] = map[launchpad.Pocket]map[string]int{
					launchpad.PocketProposed: {"amd64": p % 7, "arm64": p % 3, "riscv64": p % 11},
					launchpad.PocketRelease:  {"amd64": p % 2},
				}
			}
			next.PackagesetSources[series] = sets
			next.FailedBuilds[series] = builds

			queues := map[launchpad.Pocket]map[launchpad.QueueStatus]int{}
			for _, pocket := range launchpad.PocketValues() {
				queues[pocket] = map[launchpad.QueueStatus]int{
					launchpad.QueueStatusNew:        s,
					launchpad.QueueStatusUnapproved: s * 2,
				}
			}
			next.QueueCounts[series] = queues
		}
	})
	return store
}

func BenchmarkScrape(b *testing.B) {
	store := archiveSized()

	reg := metrics.NewRegistry()
	reg.MustRegister(metrics.NewCollector(store))
	metrics.NewInstrumentation(reg)

	log := logrus.New()
	log.SetOutput(io.Discard)
	srv := server.NewServer("127.0.0.1", "0", log)
	srv.Gatherer = reg
	srv.Status = readyStatus{store: store}
	endpoints.RegisterAll(srv)
	handler := srv.Handler()

	b.Run("Gather", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			if _, err := reg.Gather(); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("GET /metrics", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != http.StatusOK {
				b.Fatalf("status %d", w.Code)
			}
		}
	})

	b.Run("GET /metrics parallel", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
				handler.ServeHTTP(httptest.NewRecorder(), r)
			}
		})
	})
}
