package workspace

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ReloadEvent signals that a file under a watched workspace subdirectory
// changed, so callers (skill loader, cron discovery) can refresh their
// in-memory view instead of polling.
type ReloadEvent struct {
	Rel string
	Op  fsnotify.Op
}

// Watch tails rel (e.g. "skills" or "crons") for create/write/remove/rename
// events and emits a ReloadEvent for each. If the watcher cannot start, Watch
// returns an error and no channel; otherwise the channel is closed when ctx
// is done or the watcher's event or error stream closes.
func (s *Store) Watch(ctx context.Context, rel string) (<-chan ReloadEvent, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(full); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan ReloadEvent, 16)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				rel, relErr := filepath.Rel(s.Root, ev.Name)
				if relErr != nil {
					continue
				}
				select {
				case out <- ReloadEvent{Rel: rel, Op: ev.Op}:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}
