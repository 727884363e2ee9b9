// Package starred keeps the user's saved shareable configurations: a
// small keyed collection persisted under a single storage key, capped
// and ordered newest first.
//
// The canonical search string of a configuration is the unit of
// identity: it is both the entry ID and the deduplication key. Slice
// operations are pure; Store layers read-modify-write persistence on a
// kv.Store shared across views.
package starred

import (
	"sort"
	"time"

	"github.com/ahearne/cellring/internal/share"
)

// StorageKey is the fixed key the entry list is persisted under.
const StorageKey = "starred-configurations"

// MaxEntries bounds the list; the oldest entries beyond the cap are
// evicted.
const MaxEntries = 50

// Entry is one starred configuration. ID and Search are the canonical
// encoded query string; CreatedAt is unix milliseconds and orders the
// list newest first.
type Entry struct {
	ID        string `json:"id"`
	Search    string `json:"search"`
	Rule      int    `json:"rule"`
	CreatedAt int64  `json:"createdAt"`
}

func (e Entry) valid() bool {
	return e.ID != "" && e.Search != ""
}

// EntryFor derives the canonical entry for a configuration.
func EntryFor(cfg share.Config, now time.Time) Entry {
	search := cfg.Search()
	return Entry{
		ID:        search,
		Search:    search,
		Rule:      cfg.Clamped().Rule,
		CreatedAt: now.UnixMilli(),
	}
}

// Normalize drops invalid entries, deduplicates by ID keeping the most
// recent, sorts newest first and truncates to the capacity bound.
func Normalize(entries []Entry) []Entry {
	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if !e.valid() {
			continue
		}
		if kept, ok := byID[e.ID]; ok && kept.CreatedAt >= e.CreatedAt {
			continue
		}
		byID[e.ID] = e
	}

	out := make([]Entry, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	return out
}

// IsStarred reports membership by canonical ID. The search string is
// normalized to the leading-"?" form before comparison.
func IsStarred(entries []Entry, search string) bool {
	id := share.NormalizeSearch(search)
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Add removes any existing entry with the same ID, prepends the new
// entry and re-normalizes (newest first, capped).
func Add(entries []Entry, entry Entry) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, entry)
	for _, e := range entries {
		if e.ID != entry.ID {
			out = append(out, e)
		}
	}
	return Normalize(out)
}

// Remove filters out the entry matching the search string.
func Remove(entries []Entry, search string) []Entry {
	id := share.NormalizeSearch(search)
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// Toggle stars the configuration if absent and unstars it if present.
func Toggle(entries []Entry, cfg share.Config, now time.Time) []Entry {
	entry := EntryFor(cfg, now)
	if IsStarred(entries, entry.Search) {
		return Remove(entries, entry.Search)
	}
	return Add(entries, entry)
}
