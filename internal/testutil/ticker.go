// Package testutil provides deterministic test doubles shared across
// package tests.
package testutil

import (
	"sync"
	"time"
)

// ManualTicker is a tick source driven explicitly by the test instead of
// wall time. It satisfies the engine's Ticker interface structurally.
//
// Tick delivers on an unbuffered channel, so a successful Tick call
// means the consumer has observed the tick — tests get a synchronization
// point for free.
type ManualTicker struct {
	ch   chan time.Time
	done chan struct{}
	once sync.Once
}

// NewManualTicker creates a stopped-state-aware manual ticker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		ch:   make(chan time.Time),
		done: make(chan struct{}),
	}
}

// C returns the tick channel.
func (t *ManualTicker) C() <-chan time.Time {
	return t.ch
}

// Stop marks the ticker stopped. Pending and future Tick calls return
// false instead of blocking forever.
func (t *ManualTicker) Stop() {
	t.once.Do(func() { close(t.done) })
}

// Tick delivers one tick. It blocks until the consumer receives it and
// returns true, or returns false if the ticker was stopped first.
func (t *ManualTicker) Tick() bool {
	select {
	case t.ch <- time.Now():
		return true
	case <-t.done:
		return false
	}
}

// Stopped reports whether Stop has been called.
func (t *ManualTicker) Stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
