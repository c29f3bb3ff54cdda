package exporter

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/config"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/metrics"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/ubuntu"
)

// DefaultParallelism bounds concurrent build status refreshes.
const DefaultParallelism = 4

// Tracker is the part of ubuntu.Tracker the exporter drives.
type Tracker interface {
	SetOptions(opts ubuntu.Options)
	SeriesToConsider(ctx context.Context) ([]launchpad.Series, error)
	PopulatePackagesets(ctx context.Context) error
	FetchQueues(ctx context.Context) error
	FetchBuildStatuses(ctx context.Context, series launchpad.Series) error
}

// Config holds the settings the exporter can change at runtime.
type Config struct {
	RefreshInterval     time.Duration
	BuildStatusInterval time.Duration
	Parallelism         int
	Options             ubuntu.Options
}

// ConfigFrom extracts the exporter settings from the loaded configuration.
func ConfigFrom(cfg *config.ExporterConfig) Config {
	return Config{
		RefreshInterval:     cfg.RefreshInterval,
		BuildStatusInterval: cfg.BuildStatusInterval,
		Parallelism:         DefaultParallelism,
		Options: ubuntu.Options{
			Series:        cfg.Series,
			Packagesets:   cfg.Packagesets,
			Pockets:       cfg.Pockets,
			QueueStatuses: cfg.QueueStatuses,
		},
	}
}

// Status summarises the exporter for the status endpoint.
type Status struct {
	Ready       bool           `json:"ready"`
	Series      []string       `json:"series"`
	Packagesets map[string]int `json:"packagesets"`
	Tasks       []TaskStatus   `json:"tasks"`
}

// Exporter runs the refresh loops that keep the snapshot current.
type Exporter struct {
	tracker  Tracker
	store    *ubuntu.Store
	inst     *metrics.Instrumentation
	log      logrus.FieldLogger
	registry *Registry

	mu  sync.RWMutex
	cfg Config

	metricsReset chan struct{}
	buildsReset  chan struct{}
}

// New creates an exporter. Run starts it.
func New(cfg Config, tracker Tracker, store *ubuntu.Store, inst *metrics.Instrumentation, log logrus.FieldLogger) *Exporter {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = DefaultParallelism
	}
	tracker.SetOptions(cfg.Options)

	return &Exporter{
		tracker:      tracker,
		store:        store,
		inst:         inst,
		log:          log,
		registry:     NewRegistry(ubuntu.Tasks...),
		cfg:          cfg,
		metricsReset: make(chan struct{}, 1),
		buildsReset:  make(chan struct{}, 1),
	}
}

func (e *Exporter) config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Reload applies new settings. Running refreshes finish with the old ones;
// the loops pick up new intervals at once.
func (e *Exporter) Reload(cfg Config) {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = DefaultParallelism
	}

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	e.tracker.SetOptions(cfg.Options)
	for _, ch := range []chan struct{}{e.metricsReset, e.buildsReset} {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	e.log.WithFields(logrus.Fields{
		"series":      cfg.Options.Series,
		"packagesets": cfg.Options.Packagesets,
	}).Info("Configuration reloaded")
}

// Ready reports whether every refresh task has completed at least once.
func (e *Exporter) Ready() bool {
	return e.registry.AllSucceeded()
}

// Status returns a summary of the latest snapshot and of every task.
func (e *Exporter) Status() Status {
	snap := e.store.Load()
	counts := make(map[string]int, len(snap.PackagesetSources))
	for series, sets := range snap.PackagesetSources {
		counts[series] = len(sets)
	}
	return Status{
		Ready:       e.Ready(),
		Series:      snap.Series,
		Packagesets: counts,
		Tasks:       e.registry.All(),
	}
}

// Run refreshes everything once, then keeps refreshing until ctx is done.
func (e *Exporter) Run(ctx context.Context) error {
	e.log.Info("Starting initial refresh")
	e.refreshMetrics(ctx)
	e.refreshBuilds(ctx)
	if e.Ready() {
		e.log.Info("Initial refresh complete")
	} else {
		e.log.Warn("Initial refresh incomplete, retrying on the next tick")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.loop(ctx, e.metricsReset, func(c Config) time.Duration { return c.RefreshInterval }, e.refreshMetrics)
	})
	g.Go(func() error {
		return e.loop(ctx, e.buildsReset, func(c Config) time.Duration { return c.BuildStatusInterval }, e.refreshBuilds)
	})
	return g.Wait()
}

func (e *Exporter) loop(ctx context.Context, reset <-chan struct{}, interval func(Config) time.Duration, refresh func(context.Context)) error {
	current := interval(e.config())
	ticker := time.NewTicker(current)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reset:
			if next := interval(e.config()); next != current {
				current = next
				ticker.Reset(current)
			}
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

// refreshMetrics refreshes packagesets, then the upload queues.
func (e *Exporter) refreshMetrics(ctx context.Context) {
	e.run(ctx, ubuntu.TaskPackagesets, e.tracker.PopulatePackagesets)
	e.run(ctx, ubuntu.TaskQueues, e.tracker.FetchQueues)
}

// refreshBuilds refreshes the failed builds of every series in parallel.
func (e *Exporter) refreshBuilds(ctx context.Context) {
	e.run(ctx, ubuntu.TaskBuilds, func(ctx context.Context) error {
		series, err := e.tracker.SeriesToConsider(ctx)
		if err != nil {
			return err
		}

		var g errgroup.Group
		g.SetLimit(e.config().Parallelism)
		for _, s := range series {
			g.Go(func() error {
				if err := e.tracker.FetchBuildStatuses(ctx, s); err != nil {
					e.log.WithError(err).WithField("series", s.Name).Error("Failed to fetch build statuses")
					return errors.Wrap(err, s.Name)
				}
				return nil
			})
		}
		return g.Wait()
	})
}

func (e *Exporter) run(ctx context.Context, task string, fn func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		// Stopped, not failed.
		return
	}

	e.inst.ObserveRefresh(task, start, err)
	_ = e.registry.Record(task, start, time.Now(), err)

	log := e.log.WithFields(logrus.Fields{
		"task":     task,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})
	if err != nil {
		log.WithError(err).Error("Refresh failed")
		return
	}
	log.Debug("Refresh complete")
}
