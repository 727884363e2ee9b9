package sim

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ahearne/cellring/internal/rule"
)

// Engine owns the automaton's evolving state. All mutations happen in
// the single goroutine running Run; control methods are safe from any
// goroutine and block until the loop has applied them.
type Engine struct {
	cmds chan command

	// Loop-owned state. Never touched outside the Run goroutine once
	// Run has started.
	cfg     Config
	table   rule.Table
	rows    [][]uint8
	gen     int
	running bool
	token   string

	rng       *rand.Rand
	newTicker TickerFactory
	tokens    TokenSource
	observer  func(Snapshot)

	ticker Ticker
	tickC  <-chan time.Time
}

type cmdKind int

const (
	cmdStart cmdKind = iota
	cmdStop
	cmdReset
	cmdApply
	cmdSnapshot
)

type command struct {
	kind  cmdKind
	patch Patch
	reply chan Snapshot
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithRand sets the random source used for seed draws. Tests pass a
// fixed-seed source for reproducible rows.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithTickerFactory replaces the wall-clock ticker, letting tests drive
// generations manually.
func WithTickerFactory(f TickerFactory) Option {
	return func(e *Engine) { e.newTicker = f }
}

// WithTokenSource replaces the run token generator.
func WithTokenSource(ts TokenSource) Option {
	return func(e *Engine) { e.tokens = ts }
}

// WithObserver registers a callback invoked from the engine loop after
// every state change (seeding, each appended generation, start/stop).
// The callback must not call back into the engine.
func WithObserver(fn func(Snapshot)) Option {
	return func(e *Engine) { e.observer = fn }
}

// New creates an idle engine seeded at generation 0. Configuration
// values are clamped; nothing out of bounds ever reaches the tick loop.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cmds:      make(chan command),
		cfg:       cfg.clamped(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		newTicker: newRealTicker,
		tokens:    UUIDv7Source{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.table = rule.TableOf(e.cfg.Rule)
	e.seed()
	return e
}

// Run starts the single-writer loop. It blocks until ctx is cancelled.
// Control methods must not be called before Run is running.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting",
		"rule", e.cfg.Rule,
		"width", e.cfg.Width,
		"generations", e.cfg.Generations,
		"delay", e.cfg.Delay,
	)

	defer e.stopTicker()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			return ctx.Err()

		case cmd := <-e.cmds:
			e.handle(cmd)

		case <-e.tickC:
			e.step()
		}
	}
}

// Start (re)seeds generation 0, resets the pointer and history, assigns
// a fresh run token and transitions to running. Starting a running
// engine restarts it.
func (e *Engine) Start() Snapshot {
	return e.submit(command{kind: cmdStart})
}

// Stop transitions to idle without touching the generation pointer or
// history. Stopping an idle engine is a no-op.
func (e *Engine) Stop() Snapshot {
	return e.submit(command{kind: cmdStop})
}

// Reset re-seeds generation 0 (a fresh random draw unless explicit
// seeds are pinned), clears history and transitions to idle.
func (e *Engine) Reset() Snapshot {
	return e.submit(command{kind: cmdReset})
}

// Apply merges a partial configuration change. Structural changes
// (width, seed, boundary) re-seed and reset atomically inside this
// operation — between ticks, never mid-tick.
func (e *Engine) Apply(p Patch) Snapshot {
	return e.submit(command{kind: cmdApply, patch: p})
}

// Snapshot returns a consistent read-only copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	return e.submit(command{kind: cmdSnapshot})
}

func (e *Engine) submit(cmd command) Snapshot {
	cmd.reply = make(chan Snapshot, 1)
	e.cmds <- cmd
	return <-cmd.reply
}

// handle applies one command. Runs on the loop goroutine.
func (e *Engine) handle(cmd command) {
	switch cmd.kind {
	case cmdStart:
		e.seed()
		e.token = e.tokens.Generate()
		e.running = true
		e.startTicker()
		slog.Debug("run started", "token", e.token, "rule", e.cfg.Rule)
		e.notify()

	case cmdStop:
		if e.running {
			e.stopTicker()
			e.running = false
			slog.Debug("run stopped", "token", e.token, "generation", e.gen)
			e.notify()
		}

	case cmdReset:
		e.seed()
		e.stopTicker()
		e.running = false
		e.notify()

	case cmdApply:
		e.applyPatch(cmd.patch)
		e.notify()

	case cmdSnapshot:
		// Read-only; reply below.
	}

	cmd.reply <- e.snapshot()
}

// applyPatch reconciles a configuration change. The original deferred
// re-seeding to the next scheduler tick; here the patch operation itself
// computes the new seed and swaps state atomically, which keeps the
// invariant (seed changes never land mid-tick) without the delay.
func (e *Engine) applyPatch(p Patch) {
	next, structural, retimed := p.apply(e.cfg)
	e.cfg = next
	e.table = rule.TableOf(next.Rule)

	if structural {
		e.seed()
		e.stopTicker()
		e.running = false
		return
	}

	if e.running && retimed {
		e.startTicker()
	}
	if e.running && e.gen >= e.cfg.Generations {
		// A lowered generations bound can already be satisfied.
		e.stopTicker()
		e.running = false
	}
}

// step advances one generation. Runs on the loop goroutine.
func (e *Engine) step() {
	if !e.running {
		return
	}

	cur := e.rows[e.gen]
	n := e.cfg.Width
	next := make([]uint8, n)
	for i := 0; i < n; i++ {
		var left, right uint8
		if e.cfg.Boundary == BoundaryWrap {
			left = cur[(i-1+n)%n]
			right = cur[(i+1)%n]
		} else {
			left, right = e.cfg.BoundaryValue, e.cfg.BoundaryValue
			if i > 0 {
				left = cur[i-1]
			}
			if i < n-1 {
				right = cur[i+1]
			}
		}
		next[i] = e.table.Next(left, cur[i], right)
	}

	e.rows = append(e.rows, next)
	e.gen++

	if e.gen >= e.cfg.Generations {
		e.stopTicker()
		e.running = false
		slog.Debug("run complete", "token", e.token, "generations", e.gen)
	}
	e.notify()
}

// seed materializes generation 0 and truncates history to it.
func (e *Engine) seed() {
	e.rows = [][]uint8{e.cfg.Seed.row(e.cfg.Width, e.rng)}
	e.gen = 0
}

func (e *Engine) startTicker() {
	e.stopTicker()
	e.ticker = e.newTicker(e.cfg.Delay)
	e.tickC = e.ticker.C()
}

// stopTicker tears the ticker down. The tick channel is nilled first so
// a tick that raced the teardown is never observed.
func (e *Engine) stopTicker() {
	e.tickC = nil
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
}

func (e *Engine) notify() {
	if e.observer != nil {
		e.observer(e.snapshot())
	}
}
