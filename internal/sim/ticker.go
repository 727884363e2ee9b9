package sim

import "time"

// Ticker is the engine's tick source. The indirection exists so tests
// can drive generations manually instead of sleeping through delays.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates the ticker used for a run. A fresh ticker is
// created on every transition to running and stopped on every
// transition to idle.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}
