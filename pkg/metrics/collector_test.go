package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/ubuntu"
)

func TestCollector(t *testing.T) {
	store := ubuntu.NewStore()
	store.Update(func(next *ubuntu.Snapshot) {
		next.Series = []string{"noble"}
		next.PackagesetSources["noble"] = map[string][]string{
			"core":    {"bash", "coreutils"},
			"desktop": {"gnome-shell"},
		}
		next.FailedBuilds["noble"] = ubuntu.BuildCounts{
			"core": {launchpad.PocketProposed: {"amd64": 2}},
		}
		next.QueueCounts["noble"] = map[launchpad.Pocket]map[launchpad.QueueStatus]int{
			launchpad.PocketUpdates: {launchpad.QueueStatusUnapproved: 4},
		}
	})

	expected := `
# HELP packageset_failed_builds Number of failed builds of source packages in a packageset.
# TYPE packageset_failed_builds gauge
packageset_failed_builds{arch="amd64",packageset="core",pocket="Proposed",series="noble"} 2
# HELP packageset_number_packages Number of source packages in a packageset.
# TYPE packageset_number_packages gauge
packageset_number_packages{packageset="core",series="noble"} 2
packageset_number_packages{packageset="desktop",series="noble"} 1
# HELP queue_number_packages Number of uploads in an upload queue.
# TYPE queue_number_packages gauge
queue_number_packages{pocket="Updates",series="noble",status="Unapproved"} 4
`
	require.NoError(t, testutil.CollectAndCompare(NewCollector(store), strings.NewReader(expected)))
}

func TestCollector_VanishedLabelsAreDropped(t *testing.T) {
	store := ubuntu.NewStore()
	store.Update(func(next *ubuntu.Snapshot) {
		next.PackagesetSources["noble"] = map[string][]string{"core": {"bash"}}
		next.PackagesetSources["jammy"] = map[string][]string{"core": {"bash"}}
	})

	collector := NewCollector(store)
	assert.Equal(t, 2, testutil.CollectAndCount(collector, "packageset_number_packages"))

	store.Update(func(next *ubuntu.Snapshot) {
		delete(next.PackagesetSources, "jammy")
	})
	assert.Equal(t, 1, testutil.CollectAndCount(collector, "packageset_number_packages"))
}

func TestCollector_Lint(t *testing.T) {
	problems, err := testutil.CollectAndLint(NewCollector(ubuntu.NewStore()))
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestInstrumentation(t *testing.T) {
	reg := prometheus.NewRegistry()
	inst := NewInstrumentation(reg)

	inst.ObserveRefresh(ubuntu.TaskQueues, time.Now(), nil)
	inst.ObserveRefresh(ubuntu.TaskQueues, time.Now(), errors.New("boom"))
	inst.ObserveAPIRequest(200)
	inst.ObserveAPIRequest(200)
	inst.ObserveAPIRequest(0)
	inst.ObserveCache(launchpad.CacheSeries, true)
	inst.ObserveCache(launchpad.CacheSeries, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(inst.RefreshErrors.WithLabelValues(ubuntu.TaskQueues)))
	assert.Greater(t, testutil.ToFloat64(inst.LastRefresh.WithLabelValues(ubuntu.TaskQueues)), 0.0)
	assert.Equal(t, 2.0, testutil.ToFloat64(inst.APIRequests.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(inst.APIRequests.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(inst.CacheRequests.WithLabelValues(launchpad.CacheSeries, "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(inst.BuildInfo.WithLabelValues("dev")))
	assert.Equal(t, 1, testutil.CollectAndCount(inst.RefreshDuration))
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}
