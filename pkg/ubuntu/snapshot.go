package ubuntu

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-set/v2"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
)

// Refresh tasks. Each one replaces its own part of the snapshot.
const (
	TaskPackagesets = "packagesets"
	TaskQueues      = "queues"
	TaskBuilds      = "builds"
)

// Tasks lists every refresh task in the order they first run.
var Tasks = []string{TaskPackagesets, TaskQueues, TaskBuilds}

type (
	// PackagesetSources maps series -> packageset -> sorted source names.
	PackagesetSources map[string]map[string][]string
	// SourcePackagesets maps series -> source -> packagesets including it.
	SourcePackagesets map[string]map[string]*set.Set[string]
	// QueueCounts maps series -> pocket -> status -> number of uploads.
	QueueCounts map[string]map[launchpad.Pocket]map[launchpad.QueueStatus]int
	// BuildCounts maps packageset -> pocket -> arch -> number of failed
	// builds for one series.
	BuildCounts map[string]map[launchpad.Pocket]map[string]int
)

// keep returns the counts of the packagesets present in sets, sharing the
// kept values with c.
func (c BuildCounts) keep(sets map[string][]string) BuildCounts {
	out := make(BuildCounts, len(c))
	for ps, byPocket := range c {
		if _, ok := sets[ps]; ok {
			out[ps] = byPocket
		}
	}
	return out
}

// Snapshot is everything known about Launchpad at one point in time. A
// published snapshot is never modified.
type Snapshot struct {
	Series            []string
	PackagesetSources PackagesetSources
	SourcePackagesets SourcePackagesets
	QueueCounts       QueueCounts
	FailedBuilds      map[string]BuildCounts
	UpdatedAt         map[string]time.Time
}

// Packagesets returns the sorted packageset names known for a series.
func (s *Snapshot) Packagesets(series string) []string {
	names := make([]string, 0, len(s.PackagesetSources[series]))
	for name := range s.PackagesetSources[series] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PackagesetsOf returns the packagesets of a series containing source.
func (s *Snapshot) PackagesetsOf(series, source string) []string {
	sets, ok := s.SourcePackagesets[series][source]
	if !ok {
		return nil
	}
	names := sets.Slice()
	sort.Strings(names)
	return names
}

// clone copies the outer maps so that whole entries can be swapped.
func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		Series:            append([]string(nil), s.Series...),
		PackagesetSources: make(PackagesetSources, len(s.PackagesetSources)),
		SourcePackagesets: make(SourcePackagesets, len(s.SourcePackagesets)),
		QueueCounts:       make(QueueCounts, len(s.QueueCounts)),
		FailedBuilds:      make(map[string]BuildCounts, len(s.FailedBuilds)),
		UpdatedAt:         make(map[string]time.Time, len(s.UpdatedAt)),
	}
	for k, v := range s.PackagesetSources {
		next.PackagesetSources[k] = v
	}
	for k, v := range s.SourcePackagesets {
		next.SourcePackagesets[k] = v
	}
	for k, v := range s.QueueCounts {
		next.QueueCounts[k] = v
	}
	for k, v := range s.FailedBuilds {
		next.FailedBuilds[k] = v
	}
	for k, v := range s.UpdatedAt {
		next.UpdatedAt[k] = v
	}
	return next
}

// Store publishes snapshots. Readers never block; writers are serialised.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewStore returns a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store((&Snapshot{}).clone())
	return s
}

// Load returns the latest snapshot.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Update publishes a copy of the latest snapshot changed by fn. fn may add,
// replace or delete entries of the outer maps but must not modify the values
// it finds there.
func (s *Store) Update(fn func(next *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().clone()
	fn(next)
	s.current.Store(next)
}
