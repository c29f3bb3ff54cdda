package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Watch calls onChange whenever the file at path is written or replaced,
// until ctx is done. The directory is watched so that files replaced by
// rename, as editors and ConfigMap mounts do, are still seen.
func Watch(ctx context.Context, path string, log logrus.FieldLogger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer func() { _ = watcher.Close() }()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", filepath.Dir(path))
	}

	log.WithField("path", path).Debug("Watching config file")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				log.WithField("op", event.Op.String()).Info("Config file changed")
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("Watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}
