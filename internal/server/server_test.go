package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahearne/cellring/internal/kv"
	"github.com/ahearne/cellring/internal/sim"
	"github.com/ahearne/cellring/internal/starred"
	"github.com/ahearne/cellring/internal/testutil"
)

// tickers hands the test the manual tickers the engine creates.
type tickers struct {
	mu  sync.Mutex
	all []*testutil.ManualTicker
}

func (h *tickers) factory(time.Duration) sim.Ticker {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := testutil.NewManualTicker()
	h.all = append(h.all, t)
	return t
}

func newTestServer(t *testing.T, search string) (*Server, *tickers) {
	t.Helper()

	db, err := kv.Open(filepath.Join(t.TempDir(), "cellring.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	th := &tickers{}
	srv := New(Options{
		Search: search,
		Store:  starred.NewStore(db),
		EngineOptions: []sim.Option{
			sim.WithTickerFactory(th.factory),
			sim.WithTokenSource(&sim.SequenceSource{}),
			sim.WithRand(rand.New(rand.NewSource(1))),
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go srv.hub.Run(ctx)
	go func() {
		defer close(done)
		srv.engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return srv, th
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) sim.Snapshot {
	t.Helper()
	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func TestStateAndShare(t *testing.T) {
	srv, _ := newTestServer(t, "?r=22&w=8&g=100&d=10&s=gQ")
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/state")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, rec)
	assert.Equal(t, 22, snap.Rule)
	assert.Equal(t, 8, snap.Width)
	assert.Equal(t, "00010110", snap.RuleBinary)

	rec = do(t, h, http.MethodGet, "/share")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "?r=22&w=8&g=100&d=10&s=gQ", body["search"])
}

func TestAutoStartContract(t *testing.T) {
	srv, _ := newTestServer(t, "?r=30")
	assert.True(t, srv.AutoStart(), "any recognized parameter auto-starts")

	srv, _ = newTestServer(t, "")
	assert.False(t, srv.AutoStart())

	srv, _ = newTestServer(t, "?utm_source=feed")
	assert.False(t, srv.AutoStart(), "unrecognized parameters do not auto-start")
}

func TestControls(t *testing.T) {
	srv, th := newTestServer(t, "?r=22&w=8&g=5&d=10&s=gQ")
	h := srv.Handler()

	snap := decodeSnapshot(t, do(t, h, http.MethodPost, "/start"))
	assert.True(t, snap.Running)
	assert.NotEmpty(t, snap.RunToken)

	th.mu.Lock()
	ticker := th.all[len(th.all)-1]
	th.mu.Unlock()
	require.True(t, ticker.Tick())

	snap = decodeSnapshot(t, do(t, h, http.MethodPost, "/stop"))
	assert.False(t, snap.Running)
	assert.Equal(t, 1, snap.Generation, "stop keeps the pointer and history")
	assert.Len(t, snap.Rows, 2)

	snap = decodeSnapshot(t, do(t, h, http.MethodPost, "/reset"))
	assert.False(t, snap.Running)
	assert.Equal(t, 0, snap.Generation)
	assert.Len(t, snap.Rows, 1)
}

func TestConfigPatch(t *testing.T) {
	srv, _ := newTestServer(t, "?r=22&w=8&g=100&d=10&s=gQ")
	h := srv.Handler()

	// Non-structural: rule changes, history stays.
	snap := decodeSnapshot(t, do(t, h, http.MethodPost, "/config?r=90"))
	assert.Equal(t, 90, snap.Rule)
	assert.Equal(t, 8, snap.Width)

	// Out-of-range values clamp.
	snap = decodeSnapshot(t, do(t, h, http.MethodPost, "/config?g=99999"))
	assert.Equal(t, 500, snap.Generations)

	// Structural: width change re-seeds at the new width.
	snap = decodeSnapshot(t, do(t, h, http.MethodPost, "/config?w=16"))
	assert.Equal(t, 16, snap.Width)
	assert.Equal(t, 0, snap.Generation)
	require.Len(t, snap.Rows, 1)
	assert.Len(t, snap.Rows[0], 16)

	// Seed bitset decodes against the current width when w is absent.
	snap = decodeSnapshot(t, do(t, h, http.MethodPost, "/config?s=gQ"))
	assert.Equal(t, []int{0, 7}, snap.SeedIndices())
}

func TestStarredEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, "?r=22&w=8&g=100&d=10&s=gQ")
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/starred")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []starred.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Empty(t, entries)

	// Toggle the current state on.
	rec = do(t, h, http.MethodPost, "/starred/toggle")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "?r=22&w=8&g=100&d=10&s=gQ", entries[0].Search)

	// Toggle it back off.
	rec = do(t, h, http.MethodPost, "/starred/toggle")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Empty(t, entries)

	// Toggle an explicit search, then remove it.
	rec = do(t, h, http.MethodPost, "/starred/toggle?search="+"%3Fr%3D30%26w%3D8%26s%3DgQ")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 30, entries[0].Rule)

	rec = do(t, h, http.MethodPost, "/starred/remove?search="+url.QueryEscape(entries[0].Search))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Empty(t, entries)

	rec = do(t, h, http.MethodPost, "/starred/remove")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodGuards(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Handler()

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPost, "/state").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/start").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/config").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodDelete, "/starred").Code)
}
