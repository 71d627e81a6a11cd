// Package watcher reacts to external edits of the board file.
package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher watches the board file for external changes and fires a callback
// after a debounce window so editor write bursts collapse into one reload.
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	logger   *logrus.Logger
}

// New creates a file watcher.
func New(path string, logger *logrus.Logger, onChange func()) *Watcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		logger:   logger,
	}
}

// WithDebounce sets the debounce duration.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch blocks until the context is cancelled or the watch fails. The
// containing directory is watched rather than the file itself so that
// editors which replace the file on save keep triggering events.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := fsw.Add(dir); err != nil {
		return err
	}

	w.logger.WithField("path", w.path).Info("watching board file")

	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.logger.WithField("path", w.path).Info("board file changed")
				w.onChange()
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("watch error")

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return ctx.Err()
		}
	}
}
