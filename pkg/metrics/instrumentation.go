package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/version"
)

const namespace = "launchpad_exporter"

// Instrumentation holds the metrics the exporter keeps about itself.
type Instrumentation struct {
	RefreshDuration *prometheus.HistogramVec
	RefreshErrors   *prometheus.CounterVec
	LastRefresh     *prometheus.GaugeVec
	APIRequests     *prometheus.CounterVec
	CacheRequests   *prometheus.CounterVec
	BuildInfo       *prometheus.GaugeVec
}

// NewRegistry returns a registry with the Go runtime and process
// collectors registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewInstrumentation creates and registers the exporter's own metrics.
func NewInstrumentation(reg prometheus.Registerer) *Instrumentation {
	factory := promauto.With(reg)

	i := &Instrumentation{
		RefreshDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time taken to refresh data from Launchpad.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"task"}),

		RefreshErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_errors_total",
			Help:      "Number of failed refreshes.",
		}, []string{"task"}),

		LastRefresh: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}, []string{"task"}),

		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Requests made to the Launchpad API by response code.",
		}, []string{"code"}),

		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Lookups in the Launchpad caches.",
		}, []string{"cache", "result"}),

		BuildInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Always 1, labelled with the exporter version.",
		}, []string{"version"}),
	}

	i.BuildInfo.WithLabelValues(version.Version).Set(1)
	return i
}

// ObserveRefresh records one run of a refresh task that started at start.
func (i *Instrumentation) ObserveRefresh(task string, start time.Time, err error) {
	i.RefreshDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())
	if err != nil {
		i.RefreshErrors.WithLabelValues(task).Inc()
		return
	}
	i.LastRefresh.WithLabelValues(task).SetToCurrentTime()
}

// ObserveAPIRequest counts one Launchpad request. A zero code means no
// response was received.
func (i *Instrumentation) ObserveAPIRequest(code int) {
	label := "error"
	if code != 0 {
		label = strconv.Itoa(code)
	}
	i.APIRequests.WithLabelValues(label).Inc()
}

// ObserveCache counts one cache lookup.
func (i *Instrumentation) ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	i.CacheRequests.WithLabelValues(cache, result).Inc()
}
