package expansion

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dd0wney/cluso-chainviz/pkg/logging"
)

// TableWatcher reloads a key table file when it changes
type TableWatcher struct {
	path     string
	debounce time.Duration
	logger   logging.Logger
}

// NewTableWatcher creates a watcher for path
func NewTableWatcher(path string, logger logging.Logger) *TableWatcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TableWatcher{path: path, debounce: 100 * time.Millisecond, logger: logger}
}

// Watch blocks until ctx is done, calling onChange with every table that
// parses after a write. Tables that fail to parse are logged and skipped;
// the previous table stays in force.
func (w *TableWatcher) Watch(ctx context.Context, onChange func(*Table)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files by rename, so watch the directory.
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			t, err := LoadTable(abs)
			if err != nil {
				w.logger.Warn("key table reload rejected", logging.Path(abs), logging.Error(err))
				continue
			}
			w.logger.Info("key table reloaded", logging.Path(abs), logging.Count(t.Len()))
			onChange(t)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("key table watcher error", logging.Error(err))
		}
	}
}
