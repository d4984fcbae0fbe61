package producer

import (
	"context"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPrime(t *testing.T) {
	tests := []struct {
		n, want int64
	}{
		{-5, 2},
		{0, 2},
		{1, 2},
		{2, 2},
		{3, 3},
		{4, 5},
		{14, 17},
		{24, 29},
		{104723, 104723},
		{104724, 104729},
		{1_000_000_000, 1_000_000_007},
	}
	for _, tt := range tests {
		got := NextPrime(big.NewInt(tt.n), 20)
		assert.Equal(t, tt.want, got.Int64(), "NextPrime(%d)", tt.n)
	}
}

func TestNextPrimeDoesNotMutateInput(t *testing.T) {
	n := big.NewInt(90)
	NextPrime(n, 20)
	assert.Equal(t, int64(90), n.Int64())
}

func TestNextPrimeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := nextPrime(ctx, big.NewInt(1_000_000), 20)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRandomWithDigits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, digits := range []int{1, 2, 9, 50, 1500} {
		for i := 0; i < 20; i++ {
			n := randomWithDigits(rng, digits)
			require.Len(t, n.String(), digits, "digits=%d", digits)
			require.Equal(t, 1, n.Sign())
		}
	}
}
