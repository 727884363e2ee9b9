// Package share implements the compact URL-shareable encoding of an
// automaton configuration: the seed bitset codec and the query-string
// codec for the full (rule, width, generations, delay, seeds) tuple.
//
// The canonical search string produced by Config.Search is the unit of
// configuration identity: two configurations are equal iff their
// canonical encodings are equal. Everything here clamps permissively —
// values routinely arrive from URLs and free-form text fields, so
// out-of-range input is floored and clamped, never rejected.
package share

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/ahearne/cellring/internal/rule"
)

// Bounds for the shareable configuration fields. Rule bounds live in the
// rule package.
const (
	WidthMin = 1
	WidthMax = 300

	GenerationsMin = 1
	GenerationsMax = 500

	DelayMin = 10 // milliseconds
	DelayMax = 5000
)

// Defaults applied when a query parameter is absent or unparseable.
const (
	DefaultRule        = 22
	DefaultWidth       = 118
	DefaultGenerations = 100
	DefaultDelay       = 10
)

// Query parameter keys.
const (
	keyRule        = "r"
	keyWidth       = "w"
	keyGenerations = "g"
	keyDelay       = "d"
	keySeeds       = "s"
)

// Config is the shareable configuration tuple.
//
// Seeds carries the distinction between "no seed specified" and an
// explicit empty seed: nil means unspecified (callers fall back to
// random seeding), a non-nil empty slice is an explicit all-zero row.
type Config struct {
	Rule        int
	Width       int
	Generations int
	Delay       int // tick interval in milliseconds
	Seeds       []int
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Rule:        DefaultRule,
		Width:       DefaultWidth,
		Generations: DefaultGenerations,
		Delay:       DefaultDelay,
	}
}

// Clamped returns a copy with every field clamped into its bound and
// Seeds deduplicated, range-filtered and ascending. Nil-ness of Seeds is
// preserved.
func (c Config) Clamped() Config {
	out := c
	out.Rule = clampInt(c.Rule, rule.Min, rule.Max)
	out.Width = clampInt(c.Width, WidthMin, WidthMax)
	out.Generations = clampInt(c.Generations, GenerationsMin, GenerationsMax)
	out.Delay = clampInt(c.Delay, DelayMin, DelayMax)
	out.Seeds = uniqueSorted(c.Seeds, out.Width)
	return out
}

// Search serializes the configuration as its canonical query string:
// "?r=..&w=..&g=..&d=..&s=..". Every field is clamped and the seed
// bitset is always present (nil Seeds encodes as the empty set). An
// empty query would produce an empty string with no leading "?", but
// the full tuple always carries all five keys.
func (c Config) Search() string {
	cc := c.Clamped()
	pairs := []string{
		keyRule + "=" + strconv.Itoa(cc.Rule),
		keyWidth + "=" + strconv.Itoa(cc.Width),
		keyGenerations + "=" + strconv.Itoa(cc.Generations),
		keyDelay + "=" + strconv.Itoa(cc.Delay),
		keySeeds + "=" + EncodeSeedBitset(cc.Width, cc.Seeds),
	}
	query := strings.Join(pairs, "&")
	if query == "" {
		return ""
	}
	return "?" + query
}

// ParseSearch parses a query string (with or without the leading "?")
// into a configuration. The returned bool reports whether any
// recognized parameter was present; per the behavior contract a
// simulation auto-starts only in that case.
//
// r, w, g and d parse permissively: absent, non-numeric or non-finite
// values take their defaults, everything else is floored and clamped.
// The seed bitset is decoded independently against the resolved width;
// if it is absent or fails to decode, Seeds is left nil so the caller
// falls back to random seeding.
func ParseSearch(search string) (Config, bool) {
	raw := strings.TrimPrefix(search, "?")
	values, err := url.ParseQuery(raw)
	if err != nil {
		// ParseQuery reports the first malformed pair but still
		// returns everything it could parse; keep the survivors.
		if values == nil {
			return Default(), false
		}
	}

	recognized := false
	for _, key := range []string{keyRule, keyWidth, keyGenerations, keyDelay, keySeeds} {
		if values.Has(key) {
			recognized = true
			break
		}
	}

	cfg := Config{
		Rule:        parseField(values, keyRule, DefaultRule, rule.Min, rule.Max),
		Width:       parseField(values, keyWidth, DefaultWidth, WidthMin, WidthMax),
		Generations: parseField(values, keyGenerations, DefaultGenerations, GenerationsMin, GenerationsMax),
		Delay:       parseField(values, keyDelay, DefaultDelay, DelayMin, DelayMax),
	}

	if values.Has(keySeeds) {
		if seeds, ok := DecodeSeedBitset(cfg.Width, values.Get(keySeeds)); ok {
			cfg.Seeds = seeds
		}
	}

	return cfg, recognized
}

// NormalizeSearch ensures the search string starts with "?", the form
// used as the starred-configuration identity key.
func NormalizeSearch(search string) string {
	if strings.HasPrefix(search, "?") {
		return search
	}
	return "?" + search
}

// parseField reads a numeric query parameter, flooring and clamping it
// into [min,max]. Absent, unparseable or non-finite values yield def.
func parseField(values url.Values, key string, def, min, max int) int {
	if !values.Has(key) {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(values.Get(key)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	// Clamp before the int conversion: converting an out-of-range
	// float to int is not defined.
	f = math.Floor(f)
	if f < float64(min) {
		return min
	}
	if f > float64(max) {
		return max
	}
	return int(f)
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
