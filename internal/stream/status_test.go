package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTextRoundTrip(t *testing.T) {
	for _, st := range []Status{Idle, Connecting, Streaming, Completed, Failed} {
		text, err := st.MarshalText()
		require.NoError(t, err)

		var got Status
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, st, got)
	}
}

func TestStatusUnmarshalUnknown(t *testing.T) {
	got := Completed
	err := got.UnmarshalText([]byte("bogus"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
	assert.Equal(t, Completed, got, "receiver must be left untouched")
}
