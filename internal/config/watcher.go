package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads configuration when the YAML file changes, so backend
// settings can be edited live without a restart. Per-session overrides set
// through the settings API still take priority over the reloaded file.
type Watcher struct {
	path     string
	logger   *zap.Logger
	onChange func(*Config)
}

// NewWatcher creates a watcher for the given config file. onChange is
// invoked with the freshly loaded configuration after every valid change;
// invalid intermediate states are logged and skipped.
func NewWatcher(path string, logger *zap.Logger, onChange func(*Config)) *Watcher {
	return &Watcher{
		path:     path,
		logger:   logger,
		onChange: onChange,
	}
}

// Watch blocks until ctx is done, reloading the file on write events.
// Editors often replace files instead of writing in place, so the parent
// directory is watched and events are debounced.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if _, err := os.Stat(dir); err != nil {
		w.logger.Warn("config directory not found, watcher disabled", zap.String("dir", dir))
		<-ctx.Done()
		return nil
	}
	if err := fw.Add(dir); err != nil {
		return err
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, w.reload)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig()
	if err != nil {
		w.logger.Warn("ignoring invalid config change", zap.Error(err))
		return
	}

	w.logger.Info("configuration reloaded", zap.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
