package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/ubuntu"
)

var (
	packagesetPackagesDesc = prometheus.NewDesc(
		"packageset_number_packages",
		"Number of source packages in a packageset.",
		[]string{"series", "packageset"}, nil,
	)
	packagesetFailedBuildsDesc = prometheus.NewDesc(
		"packageset_failed_builds",
		"Number of failed builds of source packages in a packageset.",
		[]string{"series", "packageset", "pocket", "arch"}, nil,
	)
	queuePackagesDesc = prometheus.NewDesc(
		"queue_number_packages",
		"Number of uploads in an upload queue.",
		[]string{"series", "pocket", "status"}, nil,
	)
)

// Collector exposes the latest published snapshot as gauges. Label sets
// missing from the snapshot are not exported.
type Collector struct {
	store *ubuntu.Store
}

// NewCollector returns a collector reading from store.
func NewCollector(store *ubuntu.Store) *Collector {
	return &Collector{store: store}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- packagesetPackagesDesc
	ch <- packagesetFailedBuildsDesc
	ch <- queuePackagesDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.store.Load()

	for series, sets := range snap.PackagesetSources {
		for name, sources := range sets {
			ch <- prometheus.MustNewConstMetric(packagesetPackagesDesc, prometheus.GaugeValue,
				float64(len(sources)), series, name)
		}
	}

	for series, counts := range snap.FailedBuilds {
		for packageset, byPocket := range counts {
			for pocket, byArch := range byPocket {
				for arch, n := range byArch {
					ch <- prometheus.MustNewConstMetric(packagesetFailedBuildsDesc, prometheus.GaugeValue,
						float64(n), series, packageset, pocket.String(), arch)
				}
			}
		}
	}

	for series, byPocket := range snap.QueueCounts {
		for pocket, byStatus := range byPocket {
			for status, n := range byStatus {
				ch <- prometheus.MustNewConstMetric(queuePackagesDesc, prometheus.GaugeValue,
					float64(n), series, pocket.String(), status.String())
			}
		}
	}
}
