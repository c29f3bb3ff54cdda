package app

import (
	"context"
	"os"
	"path/filepath"
	"syscall"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/config"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/logging"
)

// ReloadConfig reloads the global configuration and applies it. An invalid
// configuration is logged and the current one kept.
func (a *App) ReloadConfig() {
	cfg, err := config.Reload()
	if err != nil {
		a.Log.WithError(err).Error("Failed to reload configuration, keeping the current one")
		return
	}
	a.Reload(cfg)
}

// HandleSignals reloads the configuration on SIGHUP and dumps every
// goroutine stack on SIGUSR1, until ctx is done.
func (a *App) HandleSignals(ctx context.Context, sigs <-chan os.Signal) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				a.Log.Info("Received SIGHUP, reloading configuration")
				a.ReloadConfig()
			case syscall.SIGUSR1:
				logging.DumpGoroutines(a.Log)
			}
		}
	}
}

// WatchConfig reloads the configuration whenever its file changes. Nothing
// is watched when the file's directory does not exist.
func (a *App) WatchConfig(ctx context.Context) error {
	path := a.CurrentConfig().ConfigFilePath()
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		a.Log.WithField("path", path).Debug("Config directory missing, not watching")
		return nil
	}
	return config.Watch(ctx, path, a.Log, a.ReloadConfig)
}
