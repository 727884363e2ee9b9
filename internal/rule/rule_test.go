package rule

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryString(t *testing.T) {
	tests := []struct {
		rule int
		want string
	}{
		{0, "00000000"},
		{22, "00010110"},
		{30, "00011110"},
		{90, "01011010"},
		{110, "01101110"},
		{255, "11111111"},
	}

	for _, tt := range tests {
		got, err := BinaryString(tt.rule)
		require.NoError(t, err, "rule %d", tt.rule)
		assert.Equal(t, tt.want, got, "rule %d", tt.rule)
	}
}

func TestBinaryStringRejectsOutOfRange(t *testing.T) {
	for _, r := range []int{-1, 256, 1000, math.MinInt} {
		_, err := BinaryString(r)
		require.Error(t, err, "rule %d", r)

		var invalid *InvalidRuleError
		require.True(t, errors.As(err, &invalid), "rule %d: want *InvalidRuleError, got %T", r, err)
		assert.Equal(t, r, invalid.Rule)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{22, 22},
		{22.9, 22}, // floored, not rounded
		{-1, 0},
		{-0.5, 0}, // floor(-0.5) = -1, clamped to 0
		{256, 255},
		{999, 255},
		{0, 0},
		{255, 255},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Clamp(tt.in), "Clamp(%v)", tt.in)
	}
}

func TestTableOf(t *testing.T) {
	// Rule 22 = 00010110: neighborhoods 1, 2 and 4 are live.
	tab := TableOf(22)
	assert.Equal(t, Table{0, 1, 1, 0, 1, 0, 0, 0}, tab)

	// Out-of-range rules clamp rather than fail.
	assert.Equal(t, TableOf(255), TableOf(300))
	assert.Equal(t, TableOf(0), TableOf(-5))
}

func TestTableNext(t *testing.T) {
	// Rule 90 is XOR of the two neighbors.
	tab := TableOf(90)
	for l := uint8(0); l <= 1; l++ {
		for c := uint8(0); c <= 1; c++ {
			for r := uint8(0); r <= 1; r++ {
				assert.Equal(t, l^r, tab.Next(l, c, r), "neighborhood %d%d%d", l, c, r)
			}
		}
	}

	// Rule 204 is the identity rule: every cell keeps its value.
	id := TableOf(204)
	for l := uint8(0); l <= 1; l++ {
		for c := uint8(0); c <= 1; c++ {
			for r := uint8(0); r <= 1; r++ {
				assert.Equal(t, c, id.Next(l, c, r), "neighborhood %d%d%d", l, c, r)
			}
		}
	}
}
