package starred

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahearne/cellring/internal/kv"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	db, err := kv.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestLoadAllMissingKey(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "cellring.db"))

	entries, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLoadAllDropsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cellring.db")
	s := openTestStore(t, path)

	blob := `[
		{"id":"?a","search":"?a","rule":22,"createdAt":100},
		{"id":"?b","search":"?b","rule":"not-a-number","createdAt":200},
		"not-an-object",
		{"id":"?c","search":"?c","rule":30,"createdAt":300}
	]`
	require.NoError(t, s.db.Put(ctx, StorageKey, []byte(blob)))

	entries, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "?c", entries[0].ID)
	assert.Equal(t, "?a", entries[1].ID)
}

func TestLoadAllCorruptBlobStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cellring.db")
	s := openTestStore(t, path)

	require.NoError(t, s.db.Put(ctx, StorageKey, []byte(`{{{`)))

	entries, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestToggleRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cellring.db")
	s := openTestStore(t, path)
	s.now = func() time.Time { return time.UnixMilli(1000) }

	cfg := cfgWithRule(22)

	entries, err := s.Toggle(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, IsStarred(entries, cfg.Search()))

	entries, err = s.Toggle(ctx, cfg)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// Two independently opened views over the same database. Each toggle
// reads the freshest persisted state, so the second view unstars what
// the first one starred instead of clobbering it.
func TestToggleAcrossViews(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cellring.db")

	a := openTestStore(t, path)
	a.now = func() time.Time { return time.UnixMilli(1000) }
	b := openTestStore(t, path)
	b.now = func() time.Time { return time.UnixMilli(2000) }

	cfg := cfgWithRule(22)

	_, err := a.Toggle(ctx, cfg)
	require.NoError(t, err)

	entries, err := b.Toggle(ctx, cfg)
	require.NoError(t, err)
	assert.Empty(t, entries, "star then unstar across views nets to absent")

	// Different configurations accumulate, newest first.
	_, err = a.Toggle(ctx, cfgWithRule(30))
	require.NoError(t, err)
	entries, err = b.Toggle(ctx, cfgWithRule(110))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 110, entries[0].Rule)
	assert.Equal(t, 30, entries[1].Rule)

	// A third view opened after the fact sees the same list.
	c := openTestStore(t, path)
	fresh, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, fresh)
}

func TestStoreRemove(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "cellring.db"))
	s.now = func() time.Time { return time.UnixMilli(1000) }

	cfg := cfgWithRule(22)
	_, err := s.Toggle(ctx, cfg)
	require.NoError(t, err)

	entries, err := s.Remove(ctx, cfg.Search())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
