package starred

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahearne/cellring/internal/kv"
	"github.com/ahearne/cellring/internal/share"
)

// Store persists the entry list in a kv.Store shared across views.
//
// Writers treat the persisted list as read-modify-write: load the
// freshest state, mutate, save. Combined with Watch, independently
// opened views stay consistent without clobbering each other.
type Store struct {
	db  *kv.Store
	now func() time.Time
}

// NewStore wraps a kv store.
func NewStore(db *kv.Store) *Store {
	return &Store{db: db, now: time.Now}
}

// LoadAll reads the persisted list. Entries failing structural
// validation are silently dropped; the survivors are normalized
// (deduplicated, newest first, capped). A missing or wholly corrupt
// blob loads as an empty list, never an error.
func (s *Store) LoadAll(ctx context.Context) ([]Entry, error) {
	blob, found, err := s.db.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load starred configurations: %w", err)
	}
	if !found {
		return []Entry{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		slog.Warn("starred store: corrupt list, starting empty", "error", err)
		return []Entry{}, nil
	}

	entries := make([]Entry, 0, len(raw))
	for _, msg := range raw {
		var e Entry
		if err := json.Unmarshal(msg, &e); err != nil {
			// Wrong field types, fractional rules and the like:
			// drop the entry, keep the rest.
			continue
		}
		entries = append(entries, e)
	}
	return Normalize(entries), nil
}

// Save persists the list, filtering entries with an empty ID and
// truncating to the capacity bound.
func (s *Store) Save(ctx context.Context, entries []Entry) error {
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID != "" {
			kept = append(kept, e)
		}
	}
	if len(kept) > MaxEntries {
		kept = kept[:MaxEntries]
	}

	blob, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("encode starred configurations: %w", err)
	}
	if err := s.db.Put(ctx, StorageKey, blob); err != nil {
		return fmt.Errorf("save starred configurations: %w", err)
	}
	return nil
}

// Toggle stars or unstars the configuration against the freshest
// persisted state and returns the resulting list.
func (s *Store) Toggle(ctx context.Context, cfg share.Config) ([]Entry, error) {
	entries, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	entries = Toggle(entries, cfg, s.now())
	if err := s.Save(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Remove unstars by search string against the freshest persisted state.
func (s *Store) Remove(ctx context.Context, search string) ([]Entry, error) {
	entries, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	entries = Remove(entries, search)
	if err := s.Save(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Watch reports externally-made changes to the shared persistence so
// this view can reload. Delegates to the kv store's watcher.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	return s.db.Watch(ctx)
}
