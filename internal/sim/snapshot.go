package sim

import (
	"time"

	"github.com/ahearne/cellring/internal/rule"
	"github.com/ahearne/cellring/internal/share"
)

// Snapshot is the read-only view consumed by the rendering layer: the
// generation pointer, the full row history, the running flag, the
// rule's binary form and the current run token.
//
// Rows is a deep copy taken inside the engine loop, so a snapshot is
// internally consistent: history has exactly Generation+1 rows and
// every row has exactly Width cells.
type Snapshot struct {
	Rule        int       `json:"rule"`
	RuleBinary  string    `json:"ruleBinary"`
	Width       int       `json:"width"`
	Generation  int       `json:"generation"`
	Generations int       `json:"generations"`
	Delay       int       `json:"delay"` // milliseconds
	Running     bool      `json:"running"`
	RunToken    string    `json:"runToken,omitempty"`
	Rows        [][]uint8 `json:"rows"`
}

// SeedIndices returns the 1-cells of generation 0 in ascending order.
func (s Snapshot) SeedIndices() []int {
	if len(s.Rows) == 0 {
		return nil
	}
	out := []int{}
	for idx, v := range s.Rows[0] {
		if v == 1 {
			out = append(out, idx)
		}
	}
	return out
}

// ShareConfig derives the shareable configuration for the state in the
// snapshot, with the exact seed positions of generation 0. Its Search
// string is what control changes re-serialize back into the URL.
func (s Snapshot) ShareConfig() share.Config {
	return share.Config{
		Rule:        s.Rule,
		Width:       s.Width,
		Generations: s.Generations,
		Delay:       s.Delay,
		Seeds:       s.SeedIndices(),
	}
}

// snapshot builds a Snapshot from loop-owned state. Must be called from
// the Run goroutine only.
func (e *Engine) snapshot() Snapshot {
	rows := make([][]uint8, len(e.rows))
	for i, r := range e.rows {
		cp := make([]uint8, len(r))
		copy(cp, r)
		rows[i] = cp
	}

	// The rule is clamped at every entry point, so the strict codec
	// cannot fail here.
	bin, _ := rule.BinaryString(e.cfg.Rule)

	return Snapshot{
		Rule:        e.cfg.Rule,
		RuleBinary:  bin,
		Width:       e.cfg.Width,
		Generation:  e.gen,
		Generations: e.cfg.Generations,
		Delay:       int(e.cfg.Delay / time.Millisecond),
		Running:     e.running,
		RunToken:    e.token,
		Rows:        rows,
	}
}
