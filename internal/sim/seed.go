package sim

import (
	"math/rand"
	"sort"
)

// SeedSpec is a tagged variant describing how generation 0 is populated:
// either exact positions (from a shared URL) or a uniform-random subset
// of a given size. The tagged form resolves the precedence ambiguity of
// an overloaded optional-list parameter: an explicit empty seed is a
// legitimate all-zero row, not a fallback to random.
//
// The zero value behaves as RandomSeed(DefaultRandomOnes).
type SeedSpec struct {
	kind     seedKind
	explicit []int
	count    int
}

type seedKind int

const (
	seedDefault seedKind = iota
	seedExplicit
	seedRandom
)

// ExplicitSeed pins generation 0 to exactly the given positions.
// Duplicates and out-of-range indices are discarded at seeding time.
func ExplicitSeed(indices ...int) SeedSpec {
	cp := make([]int, len(indices))
	copy(cp, indices)
	sort.Ints(cp)
	return SeedSpec{kind: seedExplicit, explicit: cp}
}

// RandomSeed requests count uniform-random positions without
// replacement, drawn fresh on every start and reset.
func RandomSeed(count int) SeedSpec {
	if count < 0 {
		count = 0
	}
	return SeedSpec{kind: seedRandom, count: count}
}

// Explicit returns the pinned positions when the spec is explicit.
func (s SeedSpec) Explicit() ([]int, bool) {
	if s.kind != seedExplicit {
		return nil, false
	}
	return s.explicit, true
}

// RandomCount returns the requested random subset size when the spec is
// random. The zero-value spec counts as random with DefaultRandomOnes.
func (s SeedSpec) RandomCount() (int, bool) {
	switch s.kind {
	case seedRandom:
		return s.count, true
	case seedDefault:
		return DefaultRandomOnes, true
	default:
		return 0, false
	}
}

// Equal reports whether two specs describe the same seeding behavior.
func (s SeedSpec) Equal(o SeedSpec) bool {
	sc, sRandom := s.RandomCount()
	oc, oRandom := o.RandomCount()
	if sRandom != oRandom {
		return false
	}
	if sRandom {
		return sc == oc
	}
	if len(s.explicit) != len(o.explicit) {
		return false
	}
	for i := range s.explicit {
		if s.explicit[i] != o.explicit[i] {
			return false
		}
	}
	return true
}

// row materializes generation 0 for the given width.
//
// Explicit positions are deduplicated and filtered to [0,width). Random
// seeding is a Fisher–Yates shuffle of all index positions taking the
// first count (clamped to [0,width]), sorted before use so downstream
// equality checks see deterministic seed indices.
func (s SeedSpec) row(width int, rng *rand.Rand) []uint8 {
	out := make([]uint8, width)

	if indices, ok := s.Explicit(); ok {
		for _, idx := range indices {
			if idx >= 0 && idx < width {
				out[idx] = 1
			}
		}
		return out
	}

	count, _ := s.RandomCount()
	if count > width {
		count = width
	}
	picks := rng.Perm(width)[:count]
	sort.Ints(picks)
	for _, idx := range picks {
		out[idx] = 1
	}
	return out
}
