package iqc_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aminnizamdev/Wesolowski-s-VDF-Scaffold/pkg/core/iqc"
)

func TestExpandSeedDeterministicStream(t *testing.T) {
	seed := []byte("expansion seed")

	short := iqc.ExpandSeed(seed, 10)
	long := iqc.ExpandSeed(seed, 100)
	require.Len(t, short, 10)
	require.Len(t, long, 100)

	// the stream is a prefix-stable function of the seed
	require.Equal(t, short, long[:10])
	require.Equal(t, long, iqc.ExpandSeed(seed, 100))

	require.NotEqual(t, long, iqc.ExpandSeed([]byte("another seed"), 100))
}

func TestGenerateDiscriminantProperties(t *testing.T) {
	for _, bits := range []int{128, 256, 512} {
		d, err := iqc.GenerateDiscriminant([]byte("discriminant props"), bits, 30, 10000)
		require.NoError(t, err)

		require.Negative(t, d.Sign())

		magnitude := new(big.Int).Abs(d)
		require.Equal(t, bits, magnitude.BitLen())

		// d == 1 (mod 4), in fact 1 (mod 8) so the base form (2, 1, .)
		// exists
		require.EqualValues(t, 1, new(big.Int).Mod(d, big.NewInt(8)).Int64())

		require.True(t, iqc.IsProbablePrime(magnitude, 30))
		require.NoError(t, iqc.ValidateDiscriminant(d))
	}
}

func TestGenerateDiscriminantDeterministic(t *testing.T) {
	first, err := iqc.GenerateDiscriminant([]byte("same challenge"), 128, 30, 10000)
	require.NoError(t, err)
	second, err := iqc.GenerateDiscriminant([]byte("same challenge"), 128, 30, 10000)
	require.NoError(t, err)
	require.Zero(t, first.Cmp(second))

	other, err := iqc.GenerateDiscriminant([]byte("other challenge"), 128, 30, 10000)
	require.NoError(t, err)
	require.NotZero(t, first.Cmp(other))
}

func TestGenerateDiscriminantBoundedRetries(t *testing.T) {
	// a cap of one attempt is all but guaranteed to land on a composite
	// magnitude and exhaust the search
	_, err := iqc.GenerateDiscriminant([]byte("exhaustion"), 512, 30, 1)
	if err != nil {
		require.ErrorIs(t, err, iqc.ErrGenerationExhausted)
	}
}

func TestGenerateDiscriminantRejectsTinyBitLength(t *testing.T) {
	_, err := iqc.GenerateDiscriminant([]byte("tiny"), 8, 30, 10000)
	require.ErrorIs(t, err, iqc.ErrInvalidDiscriminant)
}

func TestValidateDiscriminant(t *testing.T) {
	require.NoError(t, iqc.ValidateDiscriminant(big.NewInt(-7))) // -7 == 1 (mod 4)
	require.Error(t, iqc.ValidateDiscriminant(big.NewInt(-4)))   // 0 (mod 4)
	require.Error(t, iqc.ValidateDiscriminant(big.NewInt(-5)))   // 3 (mod 4)
	require.Error(t, iqc.ValidateDiscriminant(big.NewInt(5)))    // positive
	require.Error(t, iqc.ValidateDiscriminant(big.NewInt(0)))    // zero
}
