// Package server exposes the simulation to the rendering layer: a JSON
// HTTP surface for the four controls and the shareable encoding, plus a
// WebSocket fan-out pushing a snapshot after every generation and
// control transition.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ahearne/cellring/internal/share"
	"github.com/ahearne/cellring/internal/sim"
	"github.com/ahearne/cellring/internal/starred"
)

// Options configures a Server.
type Options struct {
	// Search is the initial shareable query string. If it carries any
	// recognized parameter the simulation auto-starts when Run begins;
	// otherwise the engine sits idle at generation 0.
	Search string

	// Store persists starred configurations.
	Store *starred.Store

	// EngineOptions are passed through to the engine, after the
	// snapshot-broadcast observer. Tests inject tickers and seeds here.
	EngineOptions []sim.Option
}

// Server wires the engine, the starred store and the WebSocket hub
// behind one HTTP handler.
type Server struct {
	engine    *sim.Engine
	store     *starred.Store
	hub       *Hub
	autoStart bool
}

// New builds a server from the initial search string. The engine is
// constructed but not running; Run starts everything.
func New(opts Options) *Server {
	cfg, recognized := share.ParseSearch(opts.Search)

	hub := NewHub()
	engineOpts := append([]sim.Option{sim.WithObserver(hub.BroadcastSnapshot)}, opts.EngineOptions...)
	engine := sim.New(sim.FromShare(cfg), engineOpts...)

	return &Server{
		engine:    engine,
		store:     opts.Store,
		hub:       hub,
		autoStart: recognized,
	}
}

// Engine exposes the underlying engine, mainly for the headless CLI.
func (s *Server) Engine() *sim.Engine { return s.engine }

// AutoStart reports whether the initial search string carried any
// recognized parameter.
func (s *Server) AutoStart() bool { return s.autoStart }

// Run starts the hub, the engine loop and the HTTP listener, honoring
// the auto-start contract. It blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)
	go s.engine.Run(ctx)

	if s.autoStart {
		s.engine.Start()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("server listening", "addr", addr, "autoStart", s.autoStart)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the HTTP surface. The engine loop must be running
// before the handler serves requests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/share", s.handleShare)
	mux.HandleFunc("/start", s.handleControl(s.engine.Start))
	mux.HandleFunc("/stop", s.handleControl(s.engine.Stop))
	mux.HandleFunc("/reset", s.handleControl(s.engine.Reset))
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/starred", s.handleStarredList)
	mux.HandleFunc("/starred/toggle", s.handleStarredToggle)
	mux.HandleFunc("/starred/remove", s.handleStarredRemove)
	mux.HandleFunc("/ws", s.hub.ServeWS)
	return mux
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]string{
		"search": snap.ShareConfig().Search(),
	})
}

func (s *Server) handleControl(op func() sim.Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, op())
	}
}

// handleConfig applies the shareable query parameters of the request as
// a partial change. Only the keys present in the query are touched;
// values clamp permissively like everywhere else.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	patch := patchFromSearch(r.URL.RawQuery, s.engine.Snapshot().Width)
	writeJSON(w, http.StatusOK, s.engine.Apply(patch))
}

func (s *Server) handleStarredList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := s.store.LoadAll(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleStarredToggle stars or unstars a configuration: the one in the
// "search" query parameter when given, otherwise the engine's current
// state.
func (s *Server) handleStarredToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var cfg share.Config
	if raw := r.URL.Query().Get("search"); raw != "" {
		cfg, _ = share.ParseSearch(raw)
	} else {
		cfg = s.engine.Snapshot().ShareConfig()
	}

	entries, err := s.store.Toggle(r.Context(), cfg)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStarredRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	search := r.URL.Query().Get("search")
	if search == "" {
		http.Error(w, "missing search parameter", http.StatusBadRequest)
		return
	}
	entries, err := s.store.Remove(r.Context(), search)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// patchFromSearch converts the present query keys into a partial
// change. Values parse with the same permissive clamping as the full
// codec. The seed bitset decodes against the width the patch will
// leave in effect: the patched width if given, otherwise width.
func patchFromSearch(rawQuery string, width int) sim.Patch {
	values, err := url.ParseQuery(rawQuery)
	if err != nil && values == nil {
		return sim.Patch{}
	}

	cfg, _ := share.ParseSearch(rawQuery)

	var p sim.Patch
	if values.Has("r") {
		p.Rule = &cfg.Rule
	}
	if values.Has("w") {
		p.Width = &cfg.Width
		width = cfg.Width
	}
	if values.Has("g") {
		p.Generations = &cfg.Generations
	}
	if values.Has("d") {
		d := time.Duration(cfg.Delay) * time.Millisecond
		p.Delay = &d
	}
	if values.Has("s") {
		if seeds, ok := share.DecodeSeedBitset(width, values.Get("s")); ok {
			spec := sim.ExplicitSeed(seeds...)
			p.Seed = &spec
		}
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func internalError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
