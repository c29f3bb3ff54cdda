// Package app wires the exporter together: Launchpad client, tracker,
// refresh loops, metrics and HTTP server.
package app

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/config"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/exporter"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/logging"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/metrics"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/server"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/server/endpoints"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/ubuntu"
)

const shutdownTimeout = 10 * time.Second

// App is a fully wired exporter.
type App struct {
	Log      *logrus.Logger
	Registry *prometheus.Registry
	Client   *launchpad.CachedClient
	Tracker  *ubuntu.Tracker
	Exporter *exporter.Exporter
	Server   *server.Server

	mu  sync.Mutex
	cfg *config.ExporterConfig
}

// NewClient builds the Launchpad client described by cfg.
func NewClient(cfg *config.ExporterConfig, log logrus.FieldLogger, opts ...launchpad.Option) *launchpad.Client {
	burst := int(math.Ceil(cfg.RequestsPerSecond))
	base := []launchpad.Option{
		launchpad.WithBaseURL(cfg.LaunchpadURL),
		launchpad.WithAPIVersion(cfg.APIVersion),
		launchpad.WithRateLimit(cfg.RequestsPerSecond, burst),
		launchpad.WithLogger(log),
	}
	return launchpad.NewClient(append(base, opts...)...)
}

// New wires an exporter for cfg. Extra options are applied to the Launchpad
// client after those derived from cfg.
func New(cfg *config.ExporterConfig, log *logrus.Logger, opts ...launchpad.Option) (*App, error) {
	reg := metrics.NewRegistry()
	inst := metrics.NewInstrumentation(reg)

	opts = append([]launchpad.Option{launchpad.WithRequestObserver(inst.ObserveAPIRequest)}, opts...)
	client := NewClient(cfg, log, opts...)

	cached, err := launchpad.NewCachedClient(client, cfg.Distribution,
		launchpad.WithCacheObserver(inst.ObserveCache))
	if err != nil {
		return nil, err
	}

	store := ubuntu.NewStore()
	reg.MustRegister(metrics.NewCollector(store))

	expCfg := exporter.ConfigFrom(cfg)
	tracker := ubuntu.NewTracker(cached, store, expCfg.Options, log)
	exp := exporter.New(expCfg, tracker, store, inst, log)

	srv := server.NewServer(cfg.BindAddress, strconv.Itoa(cfg.Port), log)
	srv.Gatherer = reg
	srv.Status = exp
	endpoints.RegisterAll(srv)

	return &App{
		cfg:      cfg,
		Log:      log,
		Registry: reg,
		Client:   cached,
		Tracker:  tracker,
		Exporter: exp,
		Server:   srv,
	}, nil
}

// Run serves HTTP and refreshes from Launchpad until ctx is done. With a
// nil listener the server listens on the configured address.
func (a *App) Run(ctx context.Context, l net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if l != nil {
			err = a.Server.StartWithListener(l)
		} else {
			err = a.Server.Start()
		}
		return errors.Wrap(err, "http server")
	})

	g.Go(func() error {
		return a.Exporter.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "shutting down http server")
		}
		return nil
	})

	return g.Wait()
}

// CurrentConfig returns the configuration last applied.
func (a *App) CurrentConfig() *config.ExporterConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Reload applies cfg to the running exporter. Settings that need a restart
// are reported and otherwise ignored.
func (a *App) Reload(cfg *config.ExporterConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, changed := range map[string]bool{
		"bind_address":        cfg.BindAddress != a.cfg.BindAddress,
		"port":                cfg.Port != a.cfg.Port,
		"launchpad_url":       cfg.LaunchpadURL != a.cfg.LaunchpadURL,
		"api_version":         cfg.APIVersion != a.cfg.APIVersion,
		"distribution":        cfg.Distribution != a.cfg.Distribution,
		"requests_per_second": cfg.RequestsPerSecond != a.cfg.RequestsPerSecond,
		"log_directory":       cfg.LogDirectory != a.cfg.LogDirectory,
	} {
		if changed {
			a.Log.WithField("attribute", name).Warn("Changing this attribute requires a restart")
		}
	}

	logging.SetDebug(a.Log, cfg.Debug)
	a.Exporter.Reload(exporter.ConfigFrom(cfg))
	a.cfg = cfg
}
