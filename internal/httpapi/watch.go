package httpapi

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JadedBlueEyes/libretto/internal"
)

const watchDebounce = 250 * time.Millisecond

// WatchDatabase calls onChange, debounced, whenever the file at path is
// written, replaced or removed. It returns once the watcher is set up and
// stops when ctx is cancelled.
func WatchDatabase(ctx context.Context, path string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}
		for {
			select {
			case <-ctx.Done():
				debounce.Stop()
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					if err := w.Add(ev.Name); err != nil {
						internal.LogDebug("watch re-add %s: %v", ev.Name, err)
					}
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(watchDebounce)
				}
			case <-debounce.C:
				internal.LogInfo("database %s changed", path)
				onChange()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				internal.LogError("watch error: %v", err)
			}
		}
	}()
	return nil
}
