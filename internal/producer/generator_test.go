package producer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	g := NewGenerator(20, 7, nil)

	var recs []Record
	err := g.Generate(context.Background(), 20, 6, func(r Record) error {
		recs = append(recs, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, recs, 6)

	for i, r := range recs {
		assert.Equal(t, i+1, r.Index)
		assert.GreaterOrEqual(t, r.Time, 0.0)

		n, ok := new(big.Int).SetString(r.Prime, 10)
		require.True(t, ok)
		assert.True(t, n.ProbablyPrime(20), "%s is not prime", r.Prime)
		// The next prime after a 20-digit start may carry into 21 digits
		// only if the start is within a prime gap of 10^20.
		assert.GreaterOrEqual(t, len(r.Prime), 20)
	}
}

func TestGenerateStopsOnEmitError(t *testing.T) {
	g := NewGenerator(20, 7, nil)
	stop := errors.New("client gone")

	calls := 0
	err := g.Generate(context.Background(), 5, 10, func(Record) error {
		calls++
		if calls == 3 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 3, calls)
}

func TestGenerateRejectsBadDigits(t *testing.T) {
	g := NewGenerator(20, 7, nil)
	emit := func(Record) error { return nil }
	assert.Error(t, g.Generate(context.Background(), 0, 5, emit))
	assert.Error(t, g.Generate(context.Background(), 1501, 5, emit))
}

func TestGenerateRecordsMetrics(t *testing.T) {
	m := NewMetrics()
	g := NewGenerator(20, 7, m)
	require.NoError(t, g.Generate(context.Background(), 8, 5, func(Record) error { return nil }))

	assert.Equal(t, 5.0, counterValue(t, m.ItemsGenerated))
}
