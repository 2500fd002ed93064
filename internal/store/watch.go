package store

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "ganttline/internal/log"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the items file into the store whenever it changes, until
// ctx is canceled. The parent directory is watched so that atomic
// rename-over saves are picked up. A file that fails to parse is logged and
// the previous items are kept.
func (s *Store) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return err
	}

	appLog.Info("watching items file", "path", abs)

	go func() {
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				if err := s.LoadFile(abs); err != nil {
					appLog.Error("items file reload failed; keeping previous items", err, "path", abs)
					continue
				}
				appLog.Info("items file reloaded", "path", abs)

			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				appLog.Error("items file watcher error", werr, "path", abs)
			}
		}
	}()

	return nil
}
