package library

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/eunhhu/carf-sub000/internal/logging"
)

// WatchFile watches the library document's on-disk path and reloads the
// store whenever it changes from outside this process. The returned
// cancel func stops the watch; it is always safe to call.
func (s *Store) WatchFile(ctx context.Context, basePath string) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return func() {}, err
	}

	dir := filepath.Join(append([]string{basePath}, docPath[:len(docPath)-1]...)...)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return func() {}, err
	}

	docFile := filepath.Join(basePath, filepath.Join(docPath...)) + ".json"

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != docFile {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.Reload(ctx); err != nil {
					logging.Logger.Warn().Err(err).Msg("library: reload after external change failed")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Logger.Warn().Err(err).Msg("library: fsnotify watch error")
			}
		}
	}()

	return func() { watcher.Close(); <-done }, nil
}
