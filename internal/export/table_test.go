package export

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primebench/primebench/internal/results"
)

func snapshotOf(items ...results.Item) results.Snapshot {
	s := results.NewStore()
	for _, it := range items {
		s.Append(it)
	}
	return s.Snapshot()
}

func TestToTableFormat(t *testing.T) {
	snap := snapshotOf(
		results.Item{Value: "2", Elapsed: 0.1},
		results.Item{Value: "104729", Elapsed: 0.000001},
		results.Item{Value: "7", Elapsed: 12},
	)

	got, err := ToTable(snap)
	require.NoError(t, err)
	assert.Equal(t, "value,time\n2,0.1\n104729,0.000001\n7,12\n", string(got))
}

func TestToTableEmpty(t *testing.T) {
	got, err := ToTable(results.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, "value,time\n", string(got))
}

func TestToTableDeterministic(t *testing.T) {
	snap := snapshotOf(results.Item{Value: "11", Elapsed: 1.0 / 3})
	a, err := ToTable(snap)
	require.NoError(t, err)
	b, err := ToTable(snap)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTableRoundTripLongValues(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var items []results.Item
	for i := 0; i < 20; i++ {
		var sb strings.Builder
		sb.WriteByte(byte('1' + rng.Intn(9)))
		for j := 1; j < 1500; j++ {
			sb.WriteByte(byte('0' + rng.Intn(10)))
		}
		items = append(items, results.Item{Value: sb.String(), Elapsed: rng.Float64() * 3})
	}
	snap := snapshotOf(items...)

	table, err := ToTable(snap)
	require.NoError(t, err)

	parsed, err := ParseTable(bytes.NewReader(table))
	require.NoError(t, err)
	require.Len(t, parsed, len(items))
	for i := range items {
		assert.Equal(t, items[i].Value, parsed[i].Value, "row %d value", i)
		assert.Len(t, parsed[i].Value, 1500)
		assert.Equal(t, items[i].Elapsed, parsed[i].Elapsed, "row %d time must round-trip exactly", i)
	}
}

func TestParseTableErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong header", "prime,seconds\n2,0.1\n"},
		{"bad time", "value,time\n2,fast\n"},
		{"bad value", "value,time\n0x2,0.1\n"},
		{"extra column", "value,time\n2,0.1,x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}
