package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primebench/primebench/internal/results"
)

func TestControllerSupersedeClosesBeforeReset(t *testing.T) {
	store := results.NewStore()
	tr := &fakeTransport{}
	c := NewController(store, tr)

	a, err := c.Start(context.Background(), validParams)
	require.NoError(t, err)
	openedA, ok := a.Next(context.Background())
	require.True(t, ok)
	a.Handle(openedA)
	a.Handle(dataEvent(`{"prime":"2","time":0.1}`))
	a.Handle(dataEvent(`{"prime":"3","time":0.2}`))

	connA := tr.conn(0)
	lenAtClose := -1
	connA.onClose = func() { lenAtClose = store.Len() }

	b, err := c.Start(context.Background(), Params{ItemSize: 20, IterationCount: 10})
	require.NoError(t, err)

	assert.Equal(t, 2, lenAtClose, "A's transport must close before B resets the store")
	assert.True(t, connA.isClosed())
	assert.Equal(t, Failed, a.Status())
	assert.ErrorIs(t, a.Err(), ErrSuperseded)
	assert.Same(t, b, c.Current())

	// A frame that was still in flight on A arrives after B started.
	connA.events <- dataEvent(`{"prime":"5","time":9}`)
	late := <-connA.events
	assert.False(t, a.Handle(late))

	openedB, ok := b.Next(context.Background())
	require.True(t, ok)
	b.Handle(openedB)
	b.Handle(dataEvent(`{"prime":"7","time":0.4}`))

	snap := store.Snapshot()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "7", snap.Items[0].Value)
	assert.InDelta(t, 0.4, snap.Aggregate.Mean, 1e-12)

	// The superseded session still reports the items it collected.
	old := a.Snapshot()
	require.Equal(t, 2, old.Len())
	assert.Equal(t, "2", old.Items[0].Value)
	assert.Equal(t, "3", old.Items[1].Value)
	assert.InDelta(t, 0.15, old.Aggregate.Mean, 1e-12)
	assert.Equal(t, 1, b.Snapshot().Len())
}

func TestControllerValidationKeepsCurrent(t *testing.T) {
	store := results.NewStore()
	tr := &fakeTransport{}
	c := NewController(store, tr)

	a, err := c.Start(context.Background(), validParams)
	require.NoError(t, err)

	_, err = c.Start(context.Background(), Params{ItemSize: 0, IterationCount: 5})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	assert.Same(t, a, c.Current())
	assert.NotEqual(t, Failed, a.Status())

	// The dial runs in the background; its opened event means it is done.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, ok := a.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, EventOpened, ev.Kind)
	assert.True(t, a.Handle(ev))
	assert.Equal(t, Streaming, a.Status())
	assert.Equal(t, 1, tr.openCount())
}

func TestControllerRestore(t *testing.T) {
	store := results.NewStore()
	c := NewController(store, &fakeTransport{})
	c.Restore([]results.Item{{Value: "2", Elapsed: 1}, {Value: "3", Elapsed: 3}})

	snap := store.Snapshot()
	assert.Equal(t, 2, snap.Aggregate.Count)
	assert.Equal(t, 2.0, snap.Aggregate.Mean)
	assert.Nil(t, c.Current())
}

func TestControllerCancelAndClose(t *testing.T) {
	c := NewController(results.NewStore(), &fakeTransport{})
	assert.False(t, c.Cancel())

	s, err := c.Start(context.Background(), validParams)
	require.NoError(t, err)
	assert.True(t, c.Cancel())
	assert.ErrorIs(t, s.Err(), ErrCancelled)

	c.Close()
	assert.ErrorIs(t, s.Err(), ErrCancelled, "close must not overwrite an earlier outcome")
}
