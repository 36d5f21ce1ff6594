package assets

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Change kinds reported by Watch.
const (
	Added   = "added"
	Removed = "removed"
)

// EventCallback is called for each file that appears in or leaves the
// directory. name is the plain file name.
type EventCallback func(kind, name string)

// Watch reports files added to or removed from dir until ctx is cancelled.
// Writes into an existing file are not reported. Temp files from Save are
// ignored; the final rename shows up as an add.
func Watch(ctx context.Context, dir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("asset watcher: started", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("asset watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if isTemp(name) || name[0] == '.' {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				info, statErr := os.Stat(ev.Name)
				if statErr != nil || !info.Mode().IsRegular() {
					continue
				}
				logger.Debug("asset watcher: added", slog.String("name", name))
				cb(Added, name)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old name only; the new name arrives
				// as its own Create.
				logger.Debug("asset watcher: removed", slog.String("name", name))
				cb(Removed, name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("asset watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
