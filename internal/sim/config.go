package sim

import (
	"time"

	"github.com/ahearne/cellring/internal/rule"
	"github.com/ahearne/cellring/internal/share"
)

// BoundaryMode selects how the neighbors of the edge cells resolve.
type BoundaryMode int

const (
	// BoundaryWrap is the canonical ring boundary: the left neighbor of
	// cell 0 is cell n-1 and the right neighbor of cell n-1 is cell 0.
	BoundaryWrap BoundaryMode = iota

	// BoundaryFixed is the legacy non-wrap mode: off-row neighbors read
	// a fixed boundary value.
	BoundaryFixed
)

// DefaultRandomOnes is the random seed size used when a configuration
// arrives without seed information: the classic single-cell start.
const DefaultRandomOnes = 1

// Config holds the engine's construction inputs. Out-of-range values
// are clamped, never rejected — by the time anything reaches the tick
// loop it is in bounds.
type Config struct {
	Rule          int
	Width         int
	Seed          SeedSpec
	Generations   int
	Delay         time.Duration
	Boundary      BoundaryMode
	BoundaryValue uint8
}

// clamped returns a copy with every field forced into its bound.
func (c Config) clamped() Config {
	out := c
	out.Rule = clampInt(c.Rule, rule.Min, rule.Max)
	out.Width = clampInt(c.Width, share.WidthMin, share.WidthMax)
	out.Generations = clampInt(c.Generations, share.GenerationsMin, share.GenerationsMax)
	out.Delay = clampDelay(c.Delay)
	out.BoundaryValue = c.BoundaryValue & 1
	if c.Boundary != BoundaryFixed {
		out.Boundary = BoundaryWrap
	}
	return out
}

// FromShare converts a shareable configuration into engine inputs.
// Absent seed information (Seeds == nil) falls back to random seeding;
// an explicit empty slice stays an explicit all-zero seed.
func FromShare(sc share.Config) Config {
	sc = sc.Clamped()
	seed := RandomSeed(DefaultRandomOnes)
	if sc.Seeds != nil {
		seed = ExplicitSeed(sc.Seeds...)
	}
	return Config{
		Rule:        sc.Rule,
		Width:       sc.Width,
		Seed:        seed,
		Generations: sc.Generations,
		Delay:       time.Duration(sc.Delay) * time.Millisecond,
	}
}

// Patch is a partial configuration change. Nil fields are untouched.
//
// Width, seed and boundary changes are structural: applying them
// re-seeds generation 0 and resets the engine to idle atomically within
// the patch operation. Rule changes swap the truth table for subsequent
// ticks; delay changes retime the ticker; generations changes move the
// stopping bound.
type Patch struct {
	Rule          *int
	Width         *int
	Generations   *int
	Delay         *time.Duration
	Seed          *SeedSpec
	Boundary      *BoundaryMode
	BoundaryValue *uint8
}

// apply merges the patch into cfg and reports whether the change was
// structural (requires a re-seed) and whether the tick cadence changed.
func (p Patch) apply(cfg Config) (next Config, structural, retimed bool) {
	next = cfg
	if p.Rule != nil {
		next.Rule = *p.Rule
	}
	if p.Width != nil {
		next.Width = *p.Width
	}
	if p.Generations != nil {
		next.Generations = *p.Generations
	}
	if p.Delay != nil {
		next.Delay = *p.Delay
	}
	if p.Seed != nil {
		next.Seed = *p.Seed
	}
	if p.Boundary != nil {
		next.Boundary = *p.Boundary
	}
	if p.BoundaryValue != nil {
		next.BoundaryValue = *p.BoundaryValue
	}
	next = next.clamped()

	structural = next.Width != cfg.Width ||
		!next.Seed.Equal(cfg.Seed) ||
		next.Boundary != cfg.Boundary ||
		next.BoundaryValue != cfg.BoundaryValue
	retimed = next.Delay != cfg.Delay
	return next, structural, retimed
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampDelay(d time.Duration) time.Duration {
	min := share.DelayMin * time.Millisecond
	max := share.DelayMax * time.Millisecond
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
