package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// reloadDebounce is how long to wait after the last write event before
// reloading, so editors that write in several syscalls trigger one reload.
const reloadDebounce = 500 * time.Millisecond

// Reloader watches the registry and blacklist files and hot-reloads the
// Store when they change.
type Reloader struct {
	watcher *fsnotify.Watcher
	store   *Store
	paths   []string
}

// NewReloader creates a file watcher over the store's data files.
// Paths that do not exist yet are skipped.
func NewReloader(store *Store) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	var watched []string
	for _, p := range []string{store.registryPath, store.blacklistPath} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %q: %w", p, err)
		}
		watched = append(watched, p)
	}

	return &Reloader{watcher: watcher, store: store, paths: watched}, nil
}

// Run watches for file changes and reloads the store. Blocks until ctx is
// cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).
				Msg("registry: data file changed")
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			if err := r.store.Reload(); err == nil {
				log.Info().Msg("registry: hot reload complete")
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("registry: watcher error")
		}
	}
}
