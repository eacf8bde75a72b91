package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// reloadDebounce collapses the burst of events editors produce on save.
const reloadDebounce = 500 * time.Millisecond

// Logger defines the logging interface needed by the config watcher.
type Logger interface {
	Infof(string, ...any)
	Errorf(string, ...any)
}

// WatchFile watches a single config file for changes and reloads it into the Store.
// Each reloaded config passes through the overrides, then Validate; on error
// the old config is kept. Overrides let command-line flags win over the file
// across reloads.
// Returns a stop function to cleanly shut down the watcher, or an error if setup fails.
func WatchFile(path string, store *Store, logger Logger, overrides ...func(*Config)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}

	// Watch the directory so editors that replace the file by rename keep
	// being noticed.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, "watch file")
	}
	target := filepath.Clean(path)

	done := make(chan struct{})

	go func() {
		defer watcher.Close()

		// Reload once events have been quiet for reloadDebounce, so a write
		// that arrives in several events is read complete.
		timer := time.NewTimer(reloadDebounce)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					timer.Reset(reloadDebounce)
				}
			case <-timer.C:
				logger.Infof("config file change detected: %s", path)
				cfg, err := reload(path, overrides)
				if err != nil {
					logger.Errorf("failed to reload config: %v", err)
					continue
				}
				store.Update(cfg)
				logger.Infof("config reloaded successfully")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Errorf("config watcher error: %v", err)
			}
		}
	}()

	return func() { close(done) }, nil
}

func reload(path string, overrides []func(*Config)) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return cfg, nil
}
