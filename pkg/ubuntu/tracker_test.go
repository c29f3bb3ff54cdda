package ubuntu

import (
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
)

type fakeLaunchpad struct {
	series      map[string]launchpad.Series
	current     []string
	packagesets map[string][]string
	sources     map[string][]string
	uploads     map[string]int
	builds      map[string][]launchpad.Build

	getSeriesCalls []string
}

func newFakeLaunchpad() *fakeLaunchpad {
	return &fakeLaunchpad{
		series: map[string]launchpad.Series{
			"noble":  {Name: "noble", Version: "24.04", Status: "Supported"},
			"plucky": {Name: "plucky", Version: "25.04", Status: "Active Development"},
		},
		current: []string{"plucky", "noble"},
		packagesets: map[string][]string{
			"noble":  {"core", "desktop"},
			"plucky": {"core"},
		},
		sources: map[string][]string{
			"noble/core":    {"bash", "coreutils"},
			"noble/desktop": {"bash", "gnome-shell"},
			"plucky/core":   {"bash"},
		},
		uploads: map[string]int{},
		builds:  map[string][]launchpad.Build{},
	}
}

func (f *fakeLaunchpad) GetSeries(_ context.Context, name string) (launchpad.Series, error) {
	f.getSeriesCalls = append(f.getSeriesCalls, name)
	s, ok := f.series[name]
	if !ok {
		return launchpad.Series{}, errors.Wrap(launchpad.ErrUnknownSeries, name)
	}
	return s, nil
}

func (f *fakeLaunchpad) CurrentSeries(context.Context) ([]launchpad.Series, error) {
	var out []launchpad.Series
	for _, name := range f.current {
		out = append(out, f.series[name])
	}
	return out, nil
}

func (f *fakeLaunchpad) Packagesets(_ context.Context, s launchpad.Series) ([]launchpad.Packageset, error) {
	var out []launchpad.Packageset
	for _, name := range f.packagesets[s.Name] {
		out = append(out, launchpad.Packageset{Name: name, SeriesName: s.Name})
	}
	return out, nil
}

func (f *fakeLaunchpad) PackagesetSources(_ context.Context, ps launchpad.Packageset) ([]string, error) {
	return f.sources[ps.SeriesName+"/"+ps.Name], nil
}

func (f *fakeLaunchpad) PackageUploadCount(_ context.Context, s launchpad.Series, status launchpad.QueueStatus, pocket launchpad.Pocket) (int, error) {
	return f.uploads[s.Name+"/"+pocket.String()+"/"+status.String()], nil
}

func (f *fakeLaunchpad) FailedBuilds(_ context.Context, s launchpad.Series, pocket launchpad.Pocket) ([]launchpad.Build, error) {
	return f.builds[s.Name+"/"+pocket.String()], nil
}

func newTestTracker(lp Launchpad, opts Options) *Tracker {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewTracker(lp, NewStore(), opts, log)
}

func TestTracker_SeriesToConsider(t *testing.T) {
	t.Run("current series when none configured", func(t *testing.T) {
		lp := newFakeLaunchpad()
		tracker := newTestTracker(lp, Options{})

		series, err := tracker.SeriesToConsider(context.Background())
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, "plucky", series[0].Name)
		assert.Equal(t, "noble", series[1].Name)
		assert.Empty(t, lp.getSeriesCalls)
	})

	t.Run("configured series are resolved", func(t *testing.T) {
		lp := newFakeLaunchpad()
		tracker := newTestTracker(lp, Options{Series: []string{"noble"}})

		series, err := tracker.SeriesToConsider(context.Background())
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.Equal(t, "24.04", series[0].Version)
		assert.Equal(t, []string{"noble"}, lp.getSeriesCalls)
	})

	t.Run("unknown series fails", func(t *testing.T) {
		tracker := newTestTracker(newFakeLaunchpad(), Options{Series: []string{"warty"}})

		_, err := tracker.SeriesToConsider(context.Background())
		assert.ErrorIs(t, err, launchpad.ErrUnknownSeries)
	})
}

func TestTracker_PopulatePackagesets(t *testing.T) {
	tracker := newTestTracker(newFakeLaunchpad(), Options{})
	require.NoError(t, tracker.PopulatePackagesets(context.Background()))

	snap := tracker.Store().Load()
	assert.Equal(t, []string{"plucky", "noble"}, snap.Series)
	assert.Equal(t, []string{"core", "desktop"}, snap.Packagesets("noble"))
	assert.Equal(t, []string{"bash", "gnome-shell"}, snap.PackagesetSources["noble"]["desktop"])
	assert.Equal(t, []string{"core", "desktop"}, snap.PackagesetsOf("noble", "bash"))
	assert.Equal(t, []string{"core"}, snap.PackagesetsOf("plucky", "bash"))
	assert.Nil(t, snap.PackagesetsOf("noble", "vim"))
	assert.Contains(t, snap.UpdatedAt, TaskPackagesets)
}

func TestTracker_PopulatePackagesetsFilter(t *testing.T) {
	tracker := newTestTracker(newFakeLaunchpad(), Options{
		Series:      []string{"noble"},
		Packagesets: []string{"desktop", "kernel"},
	})
	require.NoError(t, tracker.PopulatePackagesets(context.Background()))

	snap := tracker.Store().Load()
	assert.Equal(t, []string{"desktop"}, snap.Packagesets("noble"))
	assert.Equal(t, []string{"desktop"}, snap.PackagesetsOf("noble", "bash"))
	assert.Nil(t, snap.PackagesetsOf("noble", "coreutils"))
}

func TestTracker_PopulatePackagesetsKeepsSnapshotOnError(t *testing.T) {
	tracker := newTestTracker(newFakeLaunchpad(), Options{Series: []string{"noble"}})
	require.NoError(t, tracker.PopulatePackagesets(context.Background()))
	before := tracker.Store().Load()

	tracker.SetOptions(Options{Series: []string{"noble", "warty"}})
	err := tracker.PopulatePackagesets(context.Background())
	require.ErrorIs(t, err, launchpad.ErrUnknownSeries)
	assert.Same(t, before, tracker.Store().Load())
}

func TestTracker_FetchQueues(t *testing.T) {
	lp := newFakeLaunchpad()
	lp.uploads["noble/Proposed/New"] = 3
	lp.uploads["noble/Updates/Unapproved"] = 7

	tracker := newTestTracker(lp, Options{
		Series:  []string{"noble"},
		Pockets: []launchpad.Pocket{launchpad.PocketUpdates, launchpad.PocketProposed},
	})
	require.NoError(t, tracker.FetchQueues(context.Background()))

	counts := tracker.Store().Load().QueueCounts
	assert.Equal(t, QueueCounts{
		"noble": {
			launchpad.PocketUpdates: {
				launchpad.QueueStatusNew:        0,
				launchpad.QueueStatusUnapproved: 7,
			},
			launchpad.PocketProposed: {
				launchpad.QueueStatusNew:        3,
				launchpad.QueueStatusUnapproved: 0,
			},
		},
	}, counts)
}

func TestTracker_FetchBuildStatuses(t *testing.T) {
	lp := newFakeLaunchpad()
	lp.builds["noble/Proposed"] = []launchpad.Build{
		{SourceName: "bash", ArchTag: "amd64", Current: true},
		{SourceName: "bash", ArchTag: "arm64", Current: true},
		{SourceName: "gnome-shell", ArchTag: "amd64", Current: true},
		{SourceName: "coreutils", ArchTag: "amd64", Current: false},
		{SourceName: "vim", ArchTag: "amd64", Current: true},
	}
	lp.builds["noble/Updates"] = []launchpad.Build{
		{SourceName: "coreutils", ArchTag: "riscv64", Current: true},
	}

	tracker := newTestTracker(lp, Options{Series: []string{"noble"}})
	ctx := context.Background()
	require.NoError(t, tracker.PopulatePackagesets(ctx))

	noble, err := lp.GetSeries(ctx, "noble")
	require.NoError(t, err)
	require.NoError(t, tracker.FetchBuildStatuses(ctx, noble))

	assert.Equal(t, BuildCounts{
		"core": {
			launchpad.PocketProposed: {"amd64": 1, "arm64": 1},
			launchpad.PocketUpdates:  {"riscv64": 1},
		},
		"desktop": {
			launchpad.PocketProposed: {"amd64": 2, "arm64": 1},
		},
	}, tracker.Store().Load().FailedBuilds["noble"])
}

func TestTracker_DroppedSeriesVanish(t *testing.T) {
	lp := newFakeLaunchpad()
	lp.builds["plucky/Release"] = []launchpad.Build{
		{SourceName: "bash", ArchTag: "amd64", Current: true},
	}
	tracker := newTestTracker(lp, Options{})
	ctx := context.Background()
	require.NoError(t, tracker.PopulatePackagesets(ctx))
	require.NoError(t, tracker.FetchBuildStatuses(ctx, lp.series["plucky"]))
	require.Contains(t, tracker.Store().Load().FailedBuilds, "plucky")

	tracker.SetOptions(Options{Series: []string{"noble"}})
	require.NoError(t, tracker.PopulatePackagesets(ctx))

	snap := tracker.Store().Load()
	assert.Equal(t, []string{"noble"}, snap.Series)
	assert.NotContains(t, snap.FailedBuilds, "plucky")
	assert.NotContains(t, snap.PackagesetSources, "plucky")
}

func TestTracker_BuildsOfDroppedSeriesAreDiscarded(t *testing.T) {
	lp := newFakeLaunchpad()
	lp.builds["plucky/Release"] = []launchpad.Build{
		{SourceName: "bash", ArchTag: "amd64", Current: true},
	}
	tracker := newTestTracker(lp, Options{})
	ctx := context.Background()
	require.NoError(t, tracker.PopulatePackagesets(ctx))

	// plucky is dropped while its builds are being fetched.
	tracker.SetOptions(Options{Series: []string{"noble"}})
	require.NoError(t, tracker.PopulatePackagesets(ctx))
	require.NoError(t, tracker.FetchBuildStatuses(ctx, lp.series["plucky"]))

	assert.NotContains(t, tracker.Store().Load().FailedBuilds, "plucky")
}

func TestTracker_PackagesetFilterPrunesFailedBuilds(t *testing.T) {
	lp := newFakeLaunchpad()
	lp.builds["noble/Proposed"] = []launchpad.Build{
		{SourceName: "bash", ArchTag: "amd64", Current: true},
	}
	tracker := newTestTracker(lp, Options{Series: []string{"noble"}})
	ctx := context.Background()
	require.NoError(t, tracker.PopulatePackagesets(ctx))
	require.NoError(t, tracker.FetchBuildStatuses(ctx, lp.series["noble"]))
	require.Contains(t, tracker.Store().Load().FailedBuilds["noble"], "core")

	tracker.SetOptions(Options{Series: []string{"noble"}, Packagesets: []string{"desktop"}})
	require.NoError(t, tracker.PopulatePackagesets(ctx))

	builds := tracker.Store().Load().FailedBuilds["noble"]
	assert.NotContains(t, builds, "core")
	assert.Equal(t, map[launchpad.Pocket]map[string]int{
		launchpad.PocketProposed: {"amd64": 1},
	}, builds["desktop"])
}
