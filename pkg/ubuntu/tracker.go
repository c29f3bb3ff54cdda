package ubuntu

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/go-set/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
)

// Launchpad is the part of launchpad.CachedClient the tracker uses.
type Launchpad interface {
	GetSeries(ctx context.Context, name string) (launchpad.Series, error)
	CurrentSeries(ctx context.Context) ([]launchpad.Series, error)
	Packagesets(ctx context.Context, series launchpad.Series) ([]launchpad.Packageset, error)
	PackagesetSources(ctx context.Context, ps launchpad.Packageset) ([]string, error)
	PackageUploadCount(ctx context.Context, series launchpad.Series, status launchpad.QueueStatus, pocket launchpad.Pocket) (int, error)
	FailedBuilds(ctx context.Context, series launchpad.Series, pocket launchpad.Pocket) ([]launchpad.Build, error)
}

// Options selects what the tracker looks at.
type Options struct {
	// Series to report on. Empty means every current series.
	Series []string
	// Packagesets to report on. Empty means every packageset.
	Packagesets []string
	// Pockets queried for uploads and failed builds.
	Pockets []launchpad.Pocket
	// QueueStatuses counted in the upload queues.
	QueueStatuses []launchpad.QueueStatus
}

// DefaultOptions are used for fields left empty.
var DefaultOptions = Options{
	Pockets: launchpad.PocketValues(),
	QueueStatuses: []launchpad.QueueStatus{
		launchpad.QueueStatusNew,
		launchpad.QueueStatusUnapproved,
	},
}

// Tracker fetches data from Launchpad and publishes it to a Store.
type Tracker struct {
	lp    Launchpad
	store *Store
	log   logrus.FieldLogger
	now   func() time.Time

	mu          sync.RWMutex
	series      []string
	packagesets *set.Set[string]
	pockets     []launchpad.Pocket
	statuses    []launchpad.QueueStatus
}

// NewTracker creates a tracker publishing to store.
func NewTracker(lp Launchpad, store *Store, opts Options, log logrus.FieldLogger) *Tracker {
	t := &Tracker{
		lp:    lp,
		store: store,
		log:   log,
		now:   time.Now,
	}
	t.SetOptions(opts)
	return t
}

// SetOptions replaces the tracker options. Refreshes already running keep
// the options they started with.
func (t *Tracker) SetOptions(opts Options) {
	if len(opts.Pockets) == 0 {
		opts.Pockets = DefaultOptions.Pockets
	}
	if len(opts.QueueStatuses) == 0 {
		opts.QueueStatuses = DefaultOptions.QueueStatuses
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.series = append([]string(nil), opts.Series...)
	t.packagesets = set.From(opts.Packagesets)
	t.pockets = append([]launchpad.Pocket(nil), opts.Pockets...)
	t.statuses = append([]launchpad.QueueStatus(nil), opts.QueueStatuses...)
}

// Store returns the store the tracker publishes to.
func (t *Tracker) Store() *Store {
	return t.store
}

func (t *Tracker) options() ([]string, *set.Set[string], []launchpad.Pocket, []launchpad.QueueStatus) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.series, t.packagesets, t.pockets, t.statuses
}

// SeriesToConsider resolves the configured series, or lists the current
// ones when none are configured.
func (t *Tracker) SeriesToConsider(ctx context.Context) ([]launchpad.Series, error) {
	names, _, _, _ := t.options()
	if len(names) == 0 {
		series, err := t.lp.CurrentSeries(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "listing current series")
		}
		return series, nil
	}

	series := make([]launchpad.Series, 0, len(names))
	for _, name := range names {
		s, err := t.lp.GetSeries(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving series %q", name)
		}
		series = append(series, s)
	}
	return series, nil
}

// PopulatePackagesets fetches the packagesets of every series and the
// sources they contain. Series no longer considered are dropped from the
// snapshot.
func (t *Tracker) PopulatePackagesets(ctx context.Context) error {
	series, err := t.SeriesToConsider(ctx)
	if err != nil {
		return err
	}
	_, filter, _, _ := t.options()

	sources := make(PackagesetSources, len(series))
	membership := make(SourcePackagesets, len(series))
	names := make([]string, 0, len(series))

	for _, s := range series {
		log := t.log.WithField("series", s.Name)
		log.Info("Fetching packagesets")

		sets, err := t.lp.Packagesets(ctx, s)
		if err != nil {
			return errors.Wrapf(err, "fetching packagesets of %s", s.Name)
		}

		bySet := make(map[string][]string, len(sets))
		bySource := make(map[string]*set.Set[string])
		for _, ps := range sets {
			if !filter.Empty() && !filter.Contains(ps.Name) {
				continue
			}

			srcs, err := t.lp.PackagesetSources(ctx, ps)
			if err != nil {
				return errors.Wrapf(err, "fetching sources of %s/%s", s.Name, ps.Name)
			}
			log.WithFields(logrus.Fields{
				"packageset": ps.Name,
				"sources":    len(srcs),
			}).Debug("Got packageset")

			bySet[ps.Name] = srcs
			for _, src := range srcs {
				in, ok := bySource[src]
				if !ok {
					in = set.New[string](1)
					bySource[src] = in
				}
				in.Insert(ps.Name)
			}
		}

		if !filter.Empty() {
			for _, want := range filter.Slice() {
				if _, ok := bySet[want]; !ok {
					log.WithField("packageset", want).Warn("Packageset not found")
				}
			}
		}

		sources[s.Name] = bySet
		membership[s.Name] = bySource
		names = append(names, s.Name)
	}

	considered := set.From(names)
	t.store.Update(func(next *Snapshot) {
		next.Series = names
		next.PackagesetSources = sources
		next.SourcePackagesets = membership
		for name, counts := range next.FailedBuilds {
			if !considered.Contains(name) {
				delete(next.FailedBuilds, name)
				continue
			}
			next.FailedBuilds[name] = counts.keep(sources[name])
		}
		next.UpdatedAt[TaskPackagesets] = t.now()
	})
	return nil
}

// FetchQueues counts the uploads waiting in each queue of every series.
func (t *Tracker) FetchQueues(ctx context.Context) error {
	series, err := t.SeriesToConsider(ctx)
	if err != nil {
		return err
	}
	_, _, pockets, statuses := t.options()

	counts := make(QueueCounts, len(series))
	for _, s := range series {
		bySeries := make(map[launchpad.Pocket]map[launchpad.QueueStatus]int, len(pockets))
		for _, pocket := range pockets {
			byStatus := make(map[launchpad.QueueStatus]int, len(statuses))
			for _, status := range statuses {
				n, err := t.lp.PackageUploadCount(ctx, s, status, pocket)
				if err != nil {
					return errors.Wrapf(err, "counting %s uploads in %s-%s", status, s.Name, pocket)
				}
				byStatus[status] = n
			}
			bySeries[pocket] = byStatus
		}
		counts[s.Name] = bySeries

		t.log.WithField("series", s.Name).Debug("Fetched queues")
	}

	t.store.Update(func(next *Snapshot) {
		next.QueueCounts = counts
		next.UpdatedAt[TaskQueues] = t.now()
	})
	return nil
}

// FetchBuildStatuses counts the failed builds of one series and attributes
// each of them to every packageset containing its source. Packagesets must
// have been populated first.
func (t *Tracker) FetchBuildStatuses(ctx context.Context, series launchpad.Series) error {
	_, _, pockets, _ := t.options()
	membership := t.store.Load().SourcePackagesets[series.Name]

	log := t.log.WithField("series", series.Name)
	log.Info("Fetching build statuses")

	counts := make(BuildCounts)
	for _, pocket := range pockets {
		builds, err := t.lp.FailedBuilds(ctx, series, pocket)
		if err != nil {
			return errors.Wrapf(err, "fetching failed builds of %s-%s", series.Name, pocket)
		}

		for _, b := range builds {
			if !b.Current {
				continue
			}
			sets, ok := membership[b.SourceName]
			if !ok {
				continue
			}
			for _, ps := range sets.Slice() {
				byPocket, ok := counts[ps]
				if !ok {
					byPocket = make(map[launchpad.Pocket]map[string]int)
					counts[ps] = byPocket
				}
				byArch, ok := byPocket[pocket]
				if !ok {
					byArch = make(map[string]int)
					byPocket[pocket] = byArch
				}
				byArch[b.ArchTag]++
			}
		}
	}

	log.WithField("packagesets", len(counts)).Debug("Fetched build statuses")

	t.store.Update(func(next *Snapshot) {
		// The series may have been dropped while its builds were fetched.
		if !slices.Contains(next.Series, series.Name) {
			return
		}
		next.FailedBuilds[series.Name] = counts
		next.UpdatedAt[TaskBuilds] = t.now()
	})
	return nil
}
