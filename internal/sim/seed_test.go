package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSpecZeroValue(t *testing.T) {
	var spec SeedSpec
	count, random := spec.RandomCount()
	require.True(t, random)
	assert.Equal(t, DefaultRandomOnes, count)
	assert.True(t, spec.Equal(RandomSeed(DefaultRandomOnes)))
}

func TestSeedSpecEqual(t *testing.T) {
	assert.True(t, ExplicitSeed(1, 2).Equal(ExplicitSeed(2, 1)), "order does not matter")
	assert.False(t, ExplicitSeed(1).Equal(ExplicitSeed(2)))
	assert.False(t, ExplicitSeed().Equal(RandomSeed(0)), "explicit empty is not random")
	assert.True(t, RandomSeed(3).Equal(RandomSeed(3)))
	assert.False(t, RandomSeed(3).Equal(RandomSeed(4)))
}

func TestSeedRowExplicit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	row := ExplicitSeed(0, 0, 3, -1, 99).row(8, rng)
	assert.Equal(t, []uint8{1, 0, 0, 1, 0, 0, 0, 0}, row, "duplicates and out-of-range dropped")

	row = ExplicitSeed().row(4, rng)
	assert.Equal(t, []uint8{0, 0, 0, 0}, row)
}

func TestSeedRowRandomWithoutReplacement(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		row := RandomSeed(5).row(12, rng)
		ones := 0
		for _, v := range row {
			ones += int(v)
		}
		assert.Equal(t, 5, ones, "trial %d", trial)
	}
}
