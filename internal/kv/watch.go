package kv

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reports externally-made changes to the database. The returned
// channel receives a coalesced signal whenever another connection has
// committed a change; the caller reacts by reloading whatever it keeps
// derived from the store.
//
// Implementation: an fsnotify watcher on the database directory,
// filtered to the database file family (the file itself plus SQLite's
// -wal/-shm/-journal siblings), confirmed against data_version so this
// view's own writes never signal. The watcher shuts down when ctx is
// cancelled.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, err
	}

	last, err := s.DataVersion(ctx)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !s.databaseFile(ev.Name) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}

				v, err := s.DataVersion(ctx)
				if err != nil {
					slog.Warn("store watch: data_version check failed", "error", err)
					continue
				}
				if v == last {
					// Our own write, or filesystem noise.
					continue
				}
				last = v

				// Coalesce: one pending signal is enough, the
				// reader reloads the full blob anyway.
				select {
				case ch <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("store watch error", "error", err)
			}
		}
	}()

	return ch, nil
}

// databaseFile reports whether name belongs to this database's file
// family.
func (s *Store) databaseFile(name string) bool {
	base := filepath.Base(s.path)
	got := filepath.Base(name)
	switch got {
	case base, base + "-wal", base + "-shm", base + "-journal":
		return true
	}
	return false
}
